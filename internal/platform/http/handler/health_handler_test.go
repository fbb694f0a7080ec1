package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func setupRouter(db Pinger) *gin.Engine {
	r := gin.New()
	h := Health(db)
	r.GET("/healthz", h)
	r.HEAD("/healthz", h)
	r.OPTIONS("/healthz", h)
	return r
}

func TestHealth_ResponseStatus(t *testing.T) {
	t.Parallel()

	healthy := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })

	tests := []struct {
		name           string
		db             Pinger
		method         string
		expectedStatus int
		expectedBody   string
	}{
		{"GET without db", nil, http.MethodGet, http.StatusOK, "ok"},
		{"GET healthy db", healthy, http.MethodGet, http.StatusOK, "ok"},
		{"GET db down", down, http.MethodGet, http.StatusServiceUnavailable, "unavailable"},
		{"HEAD skips db", down, http.MethodHead, http.StatusOK, ""},
		{"OPTIONS skips db", down, http.MethodOptions, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			setupRouter(tt.db).ServeHTTP(w, httptest.NewRequest(tt.method, "/healthz", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			// 全メソッドでキャッシュを防止する
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

			if tt.expectedBody == "" {
				assert.Zero(t, w.Body.Len())
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedBody, body["status"])
		})
	}
}
