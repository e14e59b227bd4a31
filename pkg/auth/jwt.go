package auth

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"job-portal/config"
	"job-portal/internal/models"
)

const (
	issuer   = "job-portal"
	audience = "job-portal-api"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims represents JWT claims. Role flags are a snapshot taken at login;
// handlers reload the user before authorizing a command.
type Claims struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	IsRecruiter bool      `json:"is_recruiter"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	TokenType   string    `json:"token_type"`
	jwt.RegisteredClaims
}

// IsModerator reports whether the claims carry staff or superuser rights.
func (c *Claims) IsModerator() bool {
	return c.IsStaff || c.IsSuperuser
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// JWTService handles JWT operations
type JWTService struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	blacklist  *TokenBlacklist
	now        func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg *config.Config) *JWTService {
	return &JWTService{
		secretKey:  []byte(cfg.JWT.Secret),
		accessTTL:  cfg.JWT.AccessExpiry,
		refreshTTL: cfg.JWT.RefreshExpiry,
		blacklist:  NewTokenBlacklist(),
		now:        time.Now,
	}
}

// GenerateTokenPair generates access and refresh tokens for a user
func (js *JWTService) GenerateTokenPair(user *models.User) (*TokenPair, error) {
	accessToken, err := js.sign(user, tokenTypeAccess, js.accessTTL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate access token")
	}

	refreshToken, err := js.sign(user, tokenTypeRefresh, js.refreshTTL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate refresh token")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(js.accessTTL.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// GenerateAccessToken generates a JWT access token
func (js *JWTService) GenerateAccessToken(user *models.User) (string, error) {
	return js.sign(user, tokenTypeAccess, js.accessTTL)
}

func (js *JWTService) sign(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := js.now()
	claims := &Claims{
		UserID:      user.ID,
		Username:    user.Username,
		IsRecruiter: user.IsRecruiter,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID.String(),
			Audience:  []string{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(js.secretKey)
}

// ValidateAccessToken validates an access token and checks the blacklist.
func (js *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return js.validate(tokenString, tokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token and checks the blacklist.
func (js *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return js.validate(tokenString, tokenTypeRefresh)
}

func (js *JWTService) validate(tokenString, tokenType string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method: %v", token.Header["alg"])
		}
		return js.secretKey, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(js.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenMalformed
	case err != nil:
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, ErrTokenInvalid
	}
	if js.blacklist.IsBlacklisted(claims.ID) {
		return nil, ErrTokenBlacklisted
	}
	return claims, nil
}

// ExtractTokenFromBearer extracts token from Bearer authorization header
func ExtractTokenFromBearer(authHeader string) string {
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}

// BlacklistToken revokes a token until its natural expiry.
func (js *JWTService) BlacklistToken(claims *Claims) {
	if claims == nil || claims.ExpiresAt == nil {
		return
	}
	js.blacklist.Add(claims.ID, claims.ExpiresAt.Time)
}

// Blacklist returns the service's revocation list.
func (js *JWTService) Blacklist() *TokenBlacklist {
	return js.blacklist
}

// GetAccessTokenExpiry returns the access token expiry duration
func (js *JWTService) GetAccessTokenExpiry() time.Duration {
	return js.accessTTL
}

// TokenBlacklist manages revoked token IDs (for logout). It is safe for
// concurrent use.
type TokenBlacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

// NewTokenBlacklist creates a new token blacklist
func NewTokenBlacklist() *TokenBlacklist {
	return &TokenBlacklist{
		tokens: make(map[string]time.Time),
	}
}

// Add adds a token to the blacklist
func (tb *TokenBlacklist) Add(tokenID string, expiresAt time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.tokens[tokenID] = expiresAt
}

// IsBlacklisted checks if a token is blacklisted
func (tb *TokenBlacklist) IsBlacklisted(tokenID string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	expiresAt, exists := tb.tokens[tokenID]
	if !exists {
		return false
	}

	// expired tokens fail validation anyway
	if time.Now().After(expiresAt) {
		delete(tb.tokens, tokenID)
		return false
	}
	return true
}

// Cleanup removes expired tokens from blacklist and returns how many were dropped.
func (tb *TokenBlacklist) Cleanup() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	removed := 0
	for tokenID, expiresAt := range tb.tokens {
		if now.After(expiresAt) {
			delete(tb.tokens, tokenID)
			removed++
		}
	}
	return removed
}

// ValidationError represents token validation errors
type ValidationError struct {
	Message string
	Code    string
}

func (e ValidationError) Error() string {
	return e.Message
}

// Common validation errors
var (
	ErrTokenExpired     = ValidationError{Message: "Token has expired", Code: "TOKEN_EXPIRED"}
	ErrTokenInvalid     = ValidationError{Message: "Invalid token", Code: "TOKEN_INVALID"}
	ErrTokenBlacklisted = ValidationError{Message: "Token has been revoked", Code: "TOKEN_REVOKED"}
	ErrTokenMalformed   = ValidationError{Message: "Token is malformed", Code: "TOKEN_MALFORMED"}
)
