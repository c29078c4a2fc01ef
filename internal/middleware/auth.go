// Package middleware holds the fiber middleware guarding the API.
package middleware

import (
	"errors"
	"strings"
	"time"

	"kudi/internal/logging"
	"kudi/internal/models"
	"kudi/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	claimsKey = "claims"
	userIDKey = "userID"
	issuer    = "kudi-api"
)

// AuthMiddleware validates bearer tokens issued by the auth service. The
// engine trusts the user id and role they carry and nothing else.
type AuthMiddleware struct {
	secret []byte
	logger *zap.Logger
}

func NewAuthMiddleware(secret string, logger *zap.Logger) *AuthMiddleware {
	if secret == "" {
		panic("jwt secret is required")
	}
	return &AuthMiddleware{secret: []byte(secret), logger: logging.OrNop(logger)}
}

// Handler stores the token claims in the request locals.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return response.Unauthorized(c, "missing authorization header")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return response.Unauthorized(c, "invalid authorization format")
	}

	claims, err := m.parse(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		m.logger.Debug("token rejected", zap.String("path", c.Path()), zap.Error(err))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return response.Unauthorized(c, "token expired")
		}
		return response.Unauthorized(c, "invalid token")
	}

	c.Locals(claimsKey, claims)
	c.Locals(userIDKey, claims.Identity())
	return c.Next()
}

func (m *AuthMiddleware) parse(token string) (*models.UserClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &models.UserClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*models.UserClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Identity() == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// AdminOnly must run after Handler.
func AdminOnly(c *fiber.Ctx) error {
	claims, ok := Claims(c)
	if !ok {
		return response.Unauthorized(c, "invalid claims")
	}
	if !claims.IsAdmin() {
		return response.Forbidden(c)
	}
	return c.Next()
}

func Claims(c *fiber.Ctx) (*models.UserClaims, bool) {
	claims, ok := c.Locals(claimsKey).(*models.UserClaims)
	return claims, ok && claims != nil
}

// UserID returns the authenticated user, or "" outside Handler.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

// IssueToken signs an HS256 token for userID. The auth service issues user
// tokens; this serves operator tooling and tests.
func IssueToken(secret, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
		UserID: userID,
		Role:   role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
