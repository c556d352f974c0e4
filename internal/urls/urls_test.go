package urls

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
	apperrors "github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/postgres"
)

func intPtr(v int) *int { return &v }

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		item batch.Item
		want Status
	}{
		{"not found", batch.Item{Status: intPtr(404)}, StatusError404},
		{"not found wins over error name", batch.Item{Status: intPtr(404), Error: &batch.ItemError{Name: "AbortError"}}, StatusError404},
		{"abort", batch.Item{Error: &batch.ItemError{Name: "AbortError"}}, StatusErrorTimeout},
		{"robots", batch.Item{Status: intPtr(200), Error: &batch.ItemError{Name: "RobotsDenied"}}, StatusErrorRobotsDenied},
		{"other error", batch.Item{Error: &batch.ItemError{Name: "TypeError"}}, StatusErrorOther},
		{"server error", batch.Item{Status: intPtr(500)}, StatusErrorOther},
		{"nothing", batch.Item{}, StatusErrorOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorStatus(tt.item))
		})
	}
}

func TestGetDomain(t *testing.T) {
	domain, err := GetDomain("https://news.ycombinator.com/item?id=1")
	require.NoError(t, err)
	assert.Equal(t, "news.ycombinator.com", domain)

	domain, err = GetDomain("http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", domain)

	_, err = GetDomain("not a url")
	assert.ErrorIs(t, err, apperrors.ErrInvalidURL)
}

func TestParseURL(t *testing.T) {
	p, err := ParseURL("https://example.com/a/b?q=1#top")
	require.NoError(t, err)
	assert.Equal(t, ParsedURL{Scheme: "https", Netloc: "example.com", Path: "/a/b", RawQuery: "?q=1", Fragment: "#top"}, p)
	assert.Equal(t, "https://example.com/", p.Root())
}

func TestCollectRecordsOutcomesAndLinks(t *testing.T) {
	r := NewRecorder(nil, DefaultScoring, []string{"spam.com"})
	batches := []batch.HashedBatch{{
		UserIDHash: "u1",
		Items: []batch.Item{
			{
				URL:       "https://a.com/page",
				Timestamp: 1000,
				Content: &batch.ItemContent{
					Title:      "A",
					Links:      []string{"https://a.com/other", "https://b.com/x", "https://www.spam.com/"},
					ExtraLinks: []string{"https://c.com/y"},
				},
			},
			{URL: "https://d.com/missing", Timestamp: 2000, Status: intPtr(404)},
			{URL: "garbage", Timestamp: 3000},
		},
	}}

	found := r.Collect(batches)
	byURL := make(map[string]FoundURL)
	var order []string
	for _, f := range found {
		byURL[f.URL] = f
		order = append(order, f.URL)
	}

	assert.Equal(t, []string{
		"https://a.com/page",
		"https://a.com/other",
		"https://a.com/",
		"https://b.com/x",
		"https://b.com/",
		"https://c.com/y",
		"https://c.com/",
		"https://d.com/missing",
	}, order)
	assert.Equal(t, StatusCrawled, byURL["https://a.com/page"].Status)
	assert.Equal(t, StatusError404, byURL["https://d.com/missing"].Status)
	assert.Equal(t, StatusNew, byURL["https://b.com/x"].Status)
	assert.InDelta(t, 0.01, byURL["https://a.com/other"].Score, 1e-9)
	assert.InDelta(t, 1.0, byURL["https://b.com/x"].Score, 1e-9)
	assert.InDelta(t, 0.1, byURL["https://c.com/y"].Score, 1e-9)
	assert.InDelta(t, 5.0, byURL["https://b.com/"].Score, 1e-9)
	assert.Equal(t, "u1", byURL["https://b.com/x"].UserIDHash)
	assert.Equal(t, time.UnixMilli(1000).UTC(), byURL["https://b.com/x"].Timestamp)
}

type fakeStore struct {
	got []FoundURL
	err error
}

func (f *fakeStore) Record(_ context.Context, found []FoundURL) (int, error) {
	f.got = found
	return len(found), f.err
}

func TestProcessPropagatesStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	r := NewRecorder(store, DefaultScoring, nil)
	err := r.Process(context.Background(), []batch.HashedBatch{{Items: []batch.Item{{URL: "https://a.com"}}}})
	assert.Error(t, err)
	assert.Len(t, store.got, 1)
}

func TestPostgresStoreRecordSortsAndUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(postgres.NewFromDB(db))

	ts := time.Unix(100, 0).UTC()
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO urls`)
	prep.ExpectExec().WithArgs("https://a.com/", "a.com", 0, 5.0, "u", ts).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("https://b.com/", "b.com", 100, 0.0, "u", ts).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := store.Record(context.Background(), []FoundURL{
		{URL: "https://b.com/", Domain: "b.com", Status: StatusCrawled, UserIDHash: "u", Timestamp: ts},
		{URL: "https://a.com/", Domain: "a.com", Status: StatusNew, Score: 5, UserIDHash: "u", Timestamp: ts},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
