package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func seriesCount(c prometheus.Collector) int {
	ch := make(chan prometheus.Metric, 256)
	c.Collect(ch)
	close(ch)
	return len(ch)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {})
	counter := requestsTotal.WithLabelValues(http.MethodGet, "/api/sessions/{id}", "200")
	start := counterValue(t, counter)

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil))
	}

	assert.Equal(t, start+3, counterValue(t, counter))
}

func TestMiddlewareGroupsUnmatchedPaths(t *testing.T) {
	h := Middleware(http.NotFoundHandler())
	counter := requestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
	start := counterValue(t, counter)
	before := seriesCount(requestsTotal)

	for _, path := range []string{"/nope", "/wp-admin", "/.env"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, start+3, counterValue(t, counter))
	assert.Equal(t, before, seriesCount(requestsTotal))
}
