package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return New(reg, reg)
}

func TestMiddleware_CountsRequests(t *testing.T) {
	t.Parallel()

	m := newTestMetrics()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/books/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for range 3 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/1", nil))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("/books/:id", "GET", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unmatched", "GET", "404")))
}

func TestLifecycleCounters(t *testing.T) {
	t.Parallel()

	m := newTestMetrics()
	m.UploadSucceeded("pdf")
	m.UploadSucceeded("pdf")
	m.UploadFailed("epub")
	m.OrphanCleanupFailed()
	m.ArtifactDeleteFailed()
	m.ArtifactDeleteFailed()
	m.RateLimited("/api/v1/auth/login")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.uploads.WithLabelValues("pdf", "stored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("epub", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orphanCleanupFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.artifactDeleteFailure))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("/api/v1/auth/login")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	t.Parallel()

	m := newTestMetrics()
	m.UploadSucceeded("mobi")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `bookreader_book_uploads_total{format="mobi",outcome="stored"} 1`))
}
