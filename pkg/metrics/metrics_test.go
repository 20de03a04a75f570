package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	c := PageRenders.WithLabelValues("test", "ok")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(c), 1e-9)

	ArtifactFetches.WithLabelValues("stage").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(ArtifactFetches.WithLabelValues("stage")), 1.0)
}

func TestHandler(t *testing.T) {
	WarehouseQueries.WithLabelValues("APPLICATION_RECORD").Inc()

	srv := httptest.NewServer(Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), `riskview_warehouse_queries_total{table="APPLICATION_RECORD"}`)
	assert.Contains(t, string(b), "go_goroutines")
}
