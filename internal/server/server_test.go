package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"job-portal/config"
	"job-portal/internal/database"
	"job-portal/internal/metrics"
	"job-portal/tests/testutils"
)

func TestNew(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t, nil)

	assert.NotNil(t, server.Router)
	assert.NotNil(t, server.JWTService())
	assert.NotNil(t, server.RateLimiter())
	assert.NotNil(t, server.metrics)
}

func TestHealthCheck(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.Router.ServeHTTP(w, req)

	testutils.AssertJSONResponse(t, w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "job-portal-api",
	})
}

func TestReadinessCheck(t *testing.T) {
	testutils.SetupGinTestMode()
	server, tc := createTestServer(t, nil)

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	testutils.AssertJSONResponse(t, w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": nil,
	})

	var response map[string]interface{}
	testutils.ParseJSONResponse(t, w, &response)
	checks := response["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["database"])

	require.NoError(t, database.Close(tc.DB))

	w = httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	testutils.AssertJSONResponse(t, w, http.StatusServiceUnavailable, map[string]interface{}{
		"status": "not ready",
	})
}

func TestSecurityHeaders(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t, nil)

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t, func(cfg *config.Config) {
		cfg.CORS.Origins = []string{"http://localhost:3000"}
		cfg.CORS.Credentials = true
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/offers", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestSwaggerDocs(t *testing.T) {
	tests := []struct {
		env       string
		wantFound bool
	}{
		{"development", true},
		{"production", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			server, _ := createTestServer(t, func(cfg *config.Config) { cfg.Server.Env = tt.env })
			testutils.SetupGinTestMode()

			w := httptest.NewRecorder()
			server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/index.html", nil))

			if tt.wantFound {
				assert.NotEqual(t, http.StatusNotFound, w.Code)
			} else {
				assert.Equal(t, http.StatusNotFound, w.Code)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t, nil)

	server.Router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `http_requests_total{endpoint="/health",method="GET",status_code="200"} 1`)
	assert.Contains(t, body, "http_request_latency_seconds")
}

func TestMetricsDisabled(t *testing.T) {
	testutils.SetupGinTestMode()
	tc := testutils.SetupTestContext(t)
	server := New(tc.Config, tc.DB, tc.Service, nil, zap.NewNop())

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t, nil)

	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodPost, "/api/v1/offers"},
		{http.MethodGet, "/api/v1/offers/mine"},
		{http.MethodPut, "/api/v1/offers/00000000-0000-0000-0000-000000000001"},
		{http.MethodDelete, "/api/v1/offers/00000000-0000-0000-0000-000000000001"},
		{http.MethodPost, "/api/v1/offers/00000000-0000-0000-0000-000000000001/apply"},
		{http.MethodGet, "/api/v1/applications/mine"},
		{http.MethodGet, "/api/v1/applications/received"},
		{http.MethodPost, "/api/v1/applications/00000000-0000-0000-0000-000000000001/cancel"},
		{http.MethodGet, "/api/v1/admin/users"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.Router.ServeHTTP(w, httptest.NewRequest(ep.method, ep.path, nil))
			testutils.AssertErrorResponse(t, w, http.StatusUnauthorized, "MISSING_AUTH_HEADER")
		})
	}
}

func TestPublicEndpoints(t *testing.T) {
	testutils.SetupGinTestMode()
	server, tc := createTestServer(t, nil)
	recruiter := testutils.CreateTestUser(t, tc.Service, testutils.Recruiter)
	offer := testutils.CreateTestOffer(t, tc.Service, recruiter, "Go Developer", "50000-60000")

	client := testutils.NewTestHTTPClient(server.Router)

	w := client.GET("/api/v1/offers", nil)
	testutils.AssertJSONResponse(t, w, http.StatusOK, map[string]interface{}{"offers": nil, "pagination": nil})

	w = client.GET("/api/v1/offers/"+offer.ID.String(), nil)
	testutils.AssertJSONResponse(t, w, http.StatusOK, map[string]interface{}{"can_apply": false, "is_owner": false})
}

func TestAdminRoutesRequireStaff(t *testing.T) {
	testutils.SetupGinTestMode()
	server, tc := createTestServer(t, nil)
	client := testutils.NewTestHTTPClient(server.Router)

	recruiter := testutils.CreateTestUser(t, tc.Service, testutils.Recruiter)
	staff := testutils.CreateTestUser(t, tc.Service, testutils.Staff)

	w := client.GET("/api/v1/admin/users", testutils.WithAuth(testutils.GenerateAuthToken(t, tc.JWTService, recruiter)))
	testutils.AssertErrorResponse(t, w, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS")

	w = client.GET("/api/v1/admin/users", testutils.WithAuth(testutils.GenerateAuthToken(t, tc.JWTService, staff)))
	testutils.AssertJSONResponse(t, w, http.StatusOK, map[string]interface{}{"total": float64(2)})
}

func TestRateLimiting(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit.Requests = 2
	})

	var codes []int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestConcurrentRequests(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t, nil)

	const numRequests = 10
	var wg sync.WaitGroup
	results := make(chan int, numRequests)

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/offers", nil))
			results <- w.Code
		}()
	}
	wg.Wait()
	close(results)

	for code := range results {
		assert.Equal(t, http.StatusOK, code)
	}
}

func TestUnknownRoute(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t, nil)

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(w.Body.String(), `endpoint="unmatched"`))
}

// Helper functions

func createTestServer(t *testing.T, configure func(*config.Config)) (*Server, *testutils.TestContext) {
	t.Helper()
	tc := testutils.SetupTestContext(t)
	if configure != nil {
		configure(tc.Config)
	}
	return New(tc.Config, tc.DB, tc.Service, metrics.New(), zap.NewNop()), tc
}

func TestSweep(t *testing.T) {
	testutils.SetupGinTestMode()
	server, tc := createTestServer(t, nil)
	recruiter := testutils.CreateTestUser(t, tc.Service, testutils.Recruiter)
	testutils.CreateTestOffer(t, tc.Service, recruiter, "Go Developer", "50000-60000")

	expired, err := server.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, expired)

	tc.Clock.Advance(31 * 24 * time.Hour)

	expired, err = server.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	// stored statuses are already caught up
	expired, err = server.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestRunMaintenanceStopsWithContext(t *testing.T) {
	server, _ := createTestServer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		server.RunMaintenance(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("maintenance loop did not stop")
	}

	// disabled interval returns at once
	server.RunMaintenance(context.Background(), 0)
}
