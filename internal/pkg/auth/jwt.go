// internal/pkg/auth/jwt.go
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/your-org/hospital-backend/internal/config"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims carried by every token. Tokens are pinned to a tenant; the
// middleware scopes all queries by it.
type Claims struct {
	UserID    uint   `json:"user_id"`
	TenantID  uint   `json:"tenant_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates HS256 token pairs
type JWTManager struct {
	config *config.Config
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{config: cfg}
}

func (j *JWTManager) sign(claims *Claims, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    j.config.App.Name,
		Subject:   fmt.Sprintf("user:%d", claims.UserID),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.config.JWT.Secret))
}

// GenerateAccessToken issues a short-lived token carrying the role used
// for permission checks.
func (j *JWTManager) GenerateAccessToken(userID, tenantID uint, email, role string) (string, error) {
	return j.sign(&Claims{
		UserID:    userID,
		TenantID:  tenantID,
		Email:     email,
		Role:      role,
		TokenType: tokenTypeAccess,
	}, j.config.JWT.AccessTokenExpiry)
}

// GenerateRefreshToken issues a long-lived token without a role; the
// role is resolved fresh when the token is exchanged.
func (j *JWTManager) GenerateRefreshToken(userID, tenantID uint, email string) (string, error) {
	return j.sign(&Claims{
		UserID:    userID,
		TenantID:  tenantID,
		Email:     email,
		TokenType: tokenTypeRefresh,
	}, j.config.JWT.RefreshTokenExpiry)
}

func (j *JWTManager) validate(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			return []byte(j.config.JWT.Secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", wantType, claims.TokenType)
	}
	if claims.TenantID == 0 {
		return nil, fmt.Errorf("token missing tenant")
	}
	return claims, nil
}

// ValidateAccessToken validates an access token specifically
func (j *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, tokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token specifically
func (j *JWTManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, tokenTypeRefresh)
}

// ExtractTokenFromHeader pulls the bearer token out of an Authorization
// header, returning "" when the header is absent or malformed.
func ExtractTokenFromHeader(authHeader string) string {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return ""
	}
	return token
}
