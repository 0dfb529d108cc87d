package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserver_IncrementsCollectors(t *testing.T) {
	obs := NewObserver()

	before := testutil.ToFloat64(pagesTotal.WithLabelValues("ok"))
	obs.PageFetched("ok")
	require.Equal(t, before+1, testutil.ToFloat64(pagesTotal.WithLabelValues("ok")))

	before = testutil.ToFloat64(recordsTotal)
	obs.RecordsExtracted(25)
	require.Equal(t, before+25, testutil.ToFloat64(recordsTotal))

	before = testutil.ToFloat64(downloadsTotal.WithLabelValues("skipped"))
	obs.DownloadFinished("skipped")
	require.Equal(t, before+1, testutil.ToFloat64(downloadsTotal.WithLabelValues("skipped")))

	before = testutil.ToFloat64(downloadRetries)
	obs.DownloadRetried()
	require.Equal(t, before+1, testutil.ToFloat64(downloadRetries))
}

func TestRunLevelMetrics(t *testing.T) {
	ObserveRun("stopped")
	require.GreaterOrEqual(t, testutil.ToFloat64(runsTotal.WithLabelValues("stopped")), 1.0)

	SetDatasetSize(1234)
	require.Equal(t, 1234.0, testutil.ToFloat64(datasetSize))

	before := testutil.ToFloat64(searchAPIQueries)
	ObserveSearchQuery()
	require.Equal(t, before+1, testutil.ToFloat64(searchAPIQueries))
}

func TestHandler_ServesMetrics(t *testing.T) {
	Init()
	SetDatasetSize(7)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "harvester_dataset_records")
}
