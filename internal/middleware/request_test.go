package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"job-portal/config"
	"job-portal/internal/models"
)

func TestRequestContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(RequestContext(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) {
		RequestLogger(c, zap.NewNop()).Info("inside handler")
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("client_id_is_kept", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("X-Request-ID", "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "req-123", w.Body.String())

		entries := logs.FilterMessage("inside handler").AllUntimed()
		require.Len(t, entries, 1)
		assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
	})

	t.Run("oversized_id_is_replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
		assert.NoError(t, err)
	})

	t.Run("fallback_outside_context", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		fallback := zap.NewNop()
		assert.Same(t, fallback, RequestLogger(c, fallback))
		assert.Empty(t, GetRequestID(c))
	})
}

func TestAccessLog(t *testing.T) {
	js := newJWTService()
	user := &models.User{ID: uuid.New(), Username: "jane"}

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	router := gin.New()
	router.Use(RequestContext(logger), AccessLog(logger, false))
	router.GET("/api/v1/offers/:id", AuthMiddleware(js), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/api/v1/applications/:id/cancel", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })

	offerID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/offers/"+offerID, nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, js, user))
	req.Header.Set("X-Request-ID", "req-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	served := logs.FilterMessage("Request served").AllUntimed()
	require.Len(t, served, 1)
	fields := served[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "/api/v1/offers/:id", fields["route"])
	assert.Equal(t, offerID, fields["offer_id"])
	assert.Equal(t, user.ID.String(), fields["user_id"])
	assert.Equal(t, "jane", fields["username"])
	assert.NotContains(t, fields, "user_agent")

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/applications/abc/cancel", nil))
	rejected := logs.FilterMessage("Request rejected").AllUntimed()
	require.Len(t, rejected, 1)
	assert.Equal(t, "abc", rejected[0].ContextMap()["application_id"])
	assert.NotContains(t, rejected[0].ContextMap(), "user_id")
}

func TestAPIHeaders(t *testing.T) {
	router := gin.New()
	router.Use(APIHeaders())
	router.GET("/api/v1/offers", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/auth/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/offers", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/offers", nil)
	req.Header.Set("Authorization", "Bearer x")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS(config.CORSConfig{Origins: []string{"http://localhost:3000/"}, Credentials: true}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("allowed_origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Request-ID")
	})

	t.Run("disallowed_origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	})

	t.Run("wildcard", func(t *testing.T) {
		router := gin.New()
		router.Use(CORS(config.CORSConfig{Origins: []string{"*"}}))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://anywhere.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "http://anywhere.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)
	router := gin.New()
	router.Use(RequestContext(logger), Recovery(logger))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("X-Request-ID", "req-9")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, w))
	assert.Contains(t, w.Body.String(), `"request_id":"req-9"`)

	entries := logs.FilterMessage("Panic recovered").AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-9", entries[0].ContextMap()["request_id"])
}
