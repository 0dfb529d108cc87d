package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pmercier/upc-harvester/internal/index"
)

type fakeSearcher struct {
	query string
	start time.Time
	end   time.Time
	limit int
	hits  []index.Hit
	err   error
}

func (f *fakeSearcher) Search(_ context.Context, query string, start, end time.Time, limit int) ([]index.Hit, error) {
	f.query = query
	f.start = start
	f.end = end
	f.limit = limit
	return f.hits, f.err
}

func doRequest(t *testing.T, searcher Searcher, target string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(searcher, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, &fakeSearcher{}, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_SearchRequiresQuery(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, &fakeSearcher{}, "/search")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "query parameter is required")
}

func TestServer_SearchRejectsBadDates(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, &fakeSearcher{}, "/search?query=injunction&start=2024-03-04")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "start must be DD/MM/YYYY")

	rec = doRequest(t, &fakeSearcher{}, "/search?query=injunction&end=March")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "end must be DD/MM/YYYY")
}

func TestServer_SearchReturnsHits(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{hits: []index.Hit{
		{Path: "data/documents/decision.pdf", Parties: "Acme v Globex", Date: "2024-03-04", Score: 1.5},
	}}
	rec := doRequest(t, searcher, "/search?query=injunction&start=01/01/2024&end=31/12/2024")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "injunction", searcher.query)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), searcher.start)
	require.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), searcher.end)
	require.Equal(t, defaultSearchLimit, searcher.limit)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "injunction", resp.Query)
	require.Len(t, resp.Results, 1)
	require.Equal(t, "Acme v Globex", resp.Results[0].Parties)
}

func TestServer_SearchWithoutDatesPassesZeroTimes(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{}
	rec := doRequest(t, searcher, "/search?query=costs")

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, searcher.start.IsZero())
	require.True(t, searcher.end.IsZero())
}

func TestServer_SearchFailureIs500(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, &fakeSearcher{err: errors.New("index closed")}, "/search?query=costs")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "search failed")
}
