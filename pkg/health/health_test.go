package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestCheckFoldsStatuses(t *testing.T) {
	c := NewChecker(time.Second)
	c.Critical("postgres", fakePinger{})
	c.Optional("redis", fakePinger{err: errors.New("refused")})

	report := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUp, report.Components["postgres"].Status)
	assert.True(t, report.Components["postgres"].Critical)
	assert.Equal(t, StatusDegraded, report.Components["redis"].Status)
	assert.Equal(t, "refused", report.Components["redis"].Error)

	c.Critical("postgres", fakePinger{err: errors.New("down")})
	assert.Equal(t, StatusDown, c.Check(context.Background()).Status)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker(time.Second)
	c.Critical("postgres", fakePinger{})
	c.Optional("redis", fakePinger{err: errors.New("refused")})

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, gojson.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusDegraded, report.Status)

	c.Critical("postgres", fakePinger{err: errors.New("down")})
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker(0).LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}
