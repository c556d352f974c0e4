package logger

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestWithAccumulates(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	slog.SetDefault(slog.New(newHandler(&buf, "debug", "json")))

	ctx := WithRunID(context.Background(), "run-7")
	ctx = With(ctx, "stage", "index")
	FromContext(ctx).Debug("chunk started")

	assert.Contains(t, buf.String(), `"run_id":"run-7"`)
	assert.Contains(t, buf.String(), `"stage":"index"`)
}

func TestFromContextCarriesRunID(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	slog.SetDefault(slog.New(newHandler(&buf, "info", "json")))

	ctx := WithRunID(context.Background(), "run-42")
	FromContext(ctx).Info("chunk indexed")

	assert.Contains(t, buf.String(), `"run_id":"run-42"`)
}

func TestSetupWithFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	close := Setup(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		File: config.LoggingFileConfig{
			Enabled:   true,
			Path:      filepath.Join(t.TempDir(), "indexer.log"),
			MaxSizeMB: 1,
		},
	})
	slog.Info("hello")
	require.NoError(t, close())
}
