package testutils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"job-portal/config"
	"job-portal/internal/database"
	"job-portal/internal/jobs"
	"job-portal/internal/models"
	"job-portal/pkg/auth"
)

// TestPassword is the password of every user created by CreateTestUser.
const TestPassword = "password123"

// TestContext holds common test dependencies
type TestContext struct {
	DB         *gorm.DB
	Config     *config.Config
	Logger     *zap.Logger
	JWTService *auth.JWTService
	Clock      *MockTime
	Repo       *database.Repository
	Service    *jobs.Service
	TempDir    string
}

// CreateTestConfig returns a configuration backed by a SQLite file in dir.
func CreateTestConfig(dir string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Env:  "test",
			Port: "8080",
		},
		Database: config.DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(dir, "test.db"),
		},
		JWT: config.JWTConfig{
			Secret:        "test-secret-key-for-jwt-tokens",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 7 * 24 * time.Hour,
		},
		Log: config.LogConfig{
			Level:  "silent",
			Format: "json",
		},
		Dev: config.DevConfig{
			AutoMigrate: true,
		},
		CORS: config.CORSConfig{
			Origins: []string{"*"},
		},
		RateLimit: config.RateLimitConfig{
			Requests: 1000,
			Window:   60,
		},
		Metrics: config.MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Pagination: config.PaginationConfig{
			DefaultPageSize: 10,
			MaxPageSize:     100,
		},
	}
}

// SetupTestContext creates a migrated SQLite database and a service on top of
// it. The service clock starts at the current second and only moves on Advance.
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	tempDir := t.TempDir()
	cfg := CreateTestConfig(tempDir)
	testLogger := zap.NewNop()

	db, err := database.Connect(cfg, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	clock := NewMockTime(time.Now().UTC().Truncate(time.Second))
	repo := database.NewRepository(db, clock)

	return &TestContext{
		DB:         db,
		Config:     cfg,
		Logger:     testLogger,
		JWTService: auth.NewJWTService(cfg),
		Clock:      clock,
		Repo:       repo,
		Service:    jobs.NewService(repo, clock, nil, testLogger),
		TempDir:    tempDir,
	}
}

// UserKind selects the roles of a test user.
type UserKind int

const (
	Candidate UserKind = iota
	Recruiter
	Staff
	Superuser
)

// CreateTestUser registers a user with TestPassword through the service.
func CreateTestUser(t *testing.T, svc *jobs.Service, kind UserKind) *models.User {
	t.Helper()

	suffix := RandomString(8)
	user, err := svc.RegisterUser(context.Background(), jobs.RegisterInput{
		Username:    "user-" + suffix,
		Email:       "test-" + suffix + "@example.com",
		Password:    TestPassword,
		IsRecruiter: kind == Recruiter,
		IsStaff:     kind == Staff,
		IsSuperuser: kind == Superuser,
	})
	require.NoError(t, err)
	return user
}

// CreateTestOffer publishes an offer expiring in 30 days.
func CreateTestOffer(t *testing.T, svc *jobs.Service, publisher *models.User, title, salary string) *models.JobOffer {
	t.Helper()

	offer, err := svc.CreateOffer(context.Background(), publisher, jobs.OfferInput{
		Title:       title,
		Description: "Test offer for automated testing",
		Company:     "Test Corp",
		Location:    "Paris",
		SalaryRange: salary,
		ExpiresAt:   svc.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return offer
}

// GenerateAuthToken generates a JWT token for testing
func GenerateAuthToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()
	tokenPair, err := jwtService.GenerateTokenPair(user)
	require.NoError(t, err)
	return tokenPair.AccessToken
}

// CreateAuthenticatedRequest creates an HTTP request with authentication header
func CreateAuthenticatedRequest(method, url string, body string, token string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// ParseJSONResponse parses JSON response body into a struct
func ParseJSONResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), target)
	require.NoError(t, err)
}

// AssertJSONResponse asserts that the response has the expected status and contains expected fields
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedFields map[string]interface{}) {
	t.Helper()
	require.Equal(t, expectedStatus, w.Code, w.Body.String())
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	ParseJSONResponse(t, w, &response)

	for key, expectedValue := range expectedFields {
		require.Contains(t, response, key)
		if expectedValue != nil {
			require.Equal(t, expectedValue, response[key])
		}
	}
}

// AssertErrorResponse asserts that the response is an error with the expected code
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	require.Equal(t, expectedStatus, w.Code, w.Body.String())

	var response map[string]interface{}
	ParseJSONResponse(t, w, &response)

	require.Contains(t, response, "error")
	if expectedCode != "" {
		require.Equal(t, expectedCode, response["code"])
	}
}

// SetupGinTestMode sets up Gin in test mode
func SetupGinTestMode() {
	gin.SetMode(gin.TestMode)
}

// MockTime is a settable clock for time-based tests. It is safe for
// concurrent use.
type MockTime struct {
	mu          sync.Mutex
	currentTime time.Time
}

// NewMockTime creates a new mock time instance
func NewMockTime(t time.Time) *MockTime {
	return &MockTime{currentTime: t}
}

// Now returns the current mock time
func (mt *MockTime) Now() time.Time {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.currentTime
}

// Advance advances the mock time by the given duration
func (mt *MockTime) Advance(d time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.currentTime = mt.currentTime.Add(d)
}

// AssertRecordCount verifies the count of records matching the conditions
func AssertRecordCount(t *testing.T, db *gorm.DB, model interface{}, expectedCount int64, conditions ...interface{}) {
	t.Helper()
	var count int64
	query := db.Model(model)
	if len(conditions) > 0 {
		query = query.Where(conditions[0], conditions[1:]...)
	}
	err := query.Count(&count).Error
	require.NoError(t, err)
	require.Equal(t, expectedCount, count)
}

// CleanupDatabase removes all data from test database tables
func CleanupDatabase(t *testing.T, db *gorm.DB) {
	t.Helper()
	// Order matters due to foreign key constraints
	tables := []string{
		"job_applications",
		"job_offers",
		"users",
	}

	for _, table := range tables {
		err := db.Exec("DELETE FROM " + table).Error
		require.NoError(t, err)
	}
}

// TestHTTPClient provides utilities for HTTP testing
type TestHTTPClient struct {
	router http.Handler
}

// NewTestHTTPClient creates a new test HTTP client
func NewTestHTTPClient(router http.Handler) *TestHTTPClient {
	return &TestHTTPClient{router: router}
}

// GET performs a GET request
func (c *TestHTTPClient) GET(url string, headers map[string]string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, url, "", headers)
}

// POST performs a POST request
func (c *TestHTTPClient) POST(url string, body string, headers map[string]string) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, url, body, headers)
}

// PUT performs a PUT request
func (c *TestHTTPClient) PUT(url string, body string, headers map[string]string) *httptest.ResponseRecorder {
	return c.do(http.MethodPut, url, body, headers)
}

// DELETE performs a DELETE request
func (c *TestHTTPClient) DELETE(url string, headers map[string]string) *httptest.ResponseRecorder {
	return c.do(http.MethodDelete, url, "", headers)
}

func (c *TestHTTPClient) do(method, url, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

// WithAuth adds authentication header to the request headers
func WithAuth(token string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + token,
	}
}

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(t *testing.T, uuidStr string) {
	t.Helper()
	_, err := uuid.Parse(uuidStr)
	require.NoError(t, err, "Expected valid UUID, got: %s", uuidStr)
}

// RandomEmail generates a random email for testing
func RandomEmail() string {
	return "test-" + RandomString(8) + "@example.com"
}

// RandomString generates a random string of specified length, at most 32.
func RandomString(length int) string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:length]
}
