package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-portal/config"
	"job-portal/internal/models"
)

func TestNewJWTService(t *testing.T) {
	service := createTestJWTService()

	assert.NotNil(t, service)
	assert.Equal(t, []byte("test-secret-key"), service.secretKey)
	assert.Equal(t, 15*time.Minute, service.accessTTL)
	assert.Equal(t, 7*24*time.Hour, service.refreshTTL)
	assert.NotNil(t, service.Blacklist())
}

func TestGenerateTokenPair(t *testing.T) {
	service := createTestJWTService()
	user := createTestUser()

	tokenPair, err := service.GenerateTokenPair(user)

	require.NoError(t, err)
	assert.NotEmpty(t, tokenPair.AccessToken)
	assert.NotEmpty(t, tokenPair.RefreshToken)
	assert.NotEqual(t, tokenPair.AccessToken, tokenPair.RefreshToken)
	assert.Equal(t, "Bearer", tokenPair.TokenType)
	assert.Equal(t, int64(900), tokenPair.ExpiresIn)
}

func TestValidateAccessToken(t *testing.T) {
	service := createTestJWTService()
	user := createTestUser()
	user.IsRecruiter = true

	tokenPair, err := service.GenerateTokenPair(user)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(tokenPair.AccessToken)

	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Username, claims.Username)
	assert.True(t, claims.IsRecruiter)
	assert.False(t, claims.IsModerator())
	assert.Equal(t, "job-portal", claims.Issuer)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Contains(t, claims.Audience, "job-portal-api")
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	service := createTestJWTService()
	tokenPair, err := service.GenerateTokenPair(createTestUser())
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(tokenPair.RefreshToken)
	assert.Equal(t, ErrTokenInvalid, err)

	_, err = service.ValidateRefreshToken(tokenPair.AccessToken)
	assert.Equal(t, ErrTokenInvalid, err)

	claims, err := service.ValidateRefreshToken(tokenPair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", claims.TokenType)
}

func TestValidateAccessToken_InvalidToken(t *testing.T) {
	service := createTestJWTService()

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty token", "", ErrTokenMalformed},
		{"invalid token", "invalid.token.here", ErrTokenMalformed},
		{"garbage", "not-a-jwt", ErrTokenMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateAccessToken(tt.token)
			assert.Equal(t, tt.want, err)
			assert.Nil(t, claims)
		})
	}
}

func TestValidateAccessToken_ExpiredToken(t *testing.T) {
	service := createTestJWTService()
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return issued }

	tokenPair, err := service.GenerateTokenPair(createTestUser())
	require.NoError(t, err)

	service.now = func() time.Time { return issued.Add(16 * time.Minute) }

	claims, err := service.ValidateAccessToken(tokenPair.AccessToken)
	assert.Equal(t, ErrTokenExpired, err)
	assert.Nil(t, claims)

	_, err = service.ValidateRefreshToken(tokenPair.RefreshToken)
	assert.NoError(t, err)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	other := NewJWTService(&config.Config{JWT: config.JWTConfig{Secret: "other-secret", AccessExpiry: time.Minute}})
	token, err := other.GenerateAccessToken(createTestUser())
	require.NoError(t, err)

	_, err = createTestJWTService().ValidateAccessToken(token)
	assert.Equal(t, ErrTokenInvalid, err)
}

func TestValidateAccessToken_WrongSigningMethod(t *testing.T) {
	service := createTestJWTService()
	user := createTestUser()

	claims := &Claims{
		UserID:    user.ID,
		Username:  user.Username,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "job-portal",
			Subject:   user.ID.String(),
			Audience:  []string{"job-portal-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	validatedClaims, err := service.ValidateAccessToken(tokenString)
	assert.Error(t, err)
	assert.Nil(t, validatedClaims)
}

func TestExtractTokenFromBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc", ""},
		{"Bearer ", ""},
		{"", ""},
		{"Basic dXNlcjpwYXNz", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractTokenFromBearer(tt.header), tt.header)
	}
}

func TestBlacklistToken(t *testing.T) {
	service := createTestJWTService()
	tokenPair, err := service.GenerateTokenPair(createTestUser())
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(tokenPair.AccessToken)
	require.NoError(t, err)

	service.BlacklistToken(claims)
	service.BlacklistToken(nil)

	_, err = service.ValidateAccessToken(tokenPair.AccessToken)
	assert.Equal(t, ErrTokenBlacklisted, err)

	_, err = service.ValidateRefreshToken(tokenPair.RefreshToken)
	assert.NoError(t, err)
}

func TestTokenBlacklist(t *testing.T) {
	blacklist := NewTokenBlacklist()

	blacklist.Add("live", time.Now().Add(time.Hour))
	blacklist.Add("dead", time.Now().Add(-time.Hour))
	blacklist.Add("dead-too", time.Now().Add(-time.Minute))

	assert.True(t, blacklist.IsBlacklisted("live"))
	assert.False(t, blacklist.IsBlacklisted("unknown"))
	assert.False(t, blacklist.IsBlacklisted("dead"))

	assert.Equal(t, 1, blacklist.Cleanup())
	assert.True(t, blacklist.IsBlacklisted("live"))
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      ValidationError
		expected string
		code     string
	}{
		{"token expired", ErrTokenExpired, "Token has expired", "TOKEN_EXPIRED"},
		{"token invalid", ErrTokenInvalid, "Invalid token", "TOKEN_INVALID"},
		{"token blacklisted", ErrTokenBlacklisted, "Token has been revoked", "TOKEN_REVOKED"},
		{"token malformed", ErrTokenMalformed, "Token is malformed", "TOKEN_MALFORMED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestConcurrentTokenOperations(t *testing.T) {
	service := createTestJWTService()
	user := createTestUser()

	var wg sync.WaitGroup
	tokens := make([]string, 10)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pair, err := service.GenerateTokenPair(user)
			if assert.NoError(t, err) {
				tokens[i] = pair.AccessToken
			}
		}(i)
	}
	wg.Wait()

	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			claims, err := service.ValidateAccessToken(token)
			if !assert.NoError(t, err) {
				return
			}
			if i%2 == 0 {
				service.BlacklistToken(claims)
			}
		}(i, token)
	}
	wg.Wait()

	revoked := 0
	for _, token := range tokens {
		if _, err := service.ValidateAccessToken(token); err == ErrTokenBlacklisted {
			revoked++
		}
	}
	assert.Equal(t, 5, revoked)
}

// Helper functions

func createTestJWTService() *JWTService {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:        "test-secret-key",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 7 * 24 * time.Hour,
		},
	}
	return NewJWTService(cfg)
}

func createTestUser() *models.User {
	return &models.User{
		ID:       uuid.New(),
		Username: "testuser",
		Email:    "test@example.com",
	}
}
