package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"job-portal/internal/logger"
	"job-portal/internal/tokenstore"
	"job-portal/pkg/portal"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	issuer         = "job-portal"
	claimsKey      = "auth.claims"
	minPasswordLen = 6
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", minPasswordLen)
)

type Claims struct {
	UserID string      `json:"user_id"`
	Role   portal.Role `json:"role"`
	jwt.RegisteredClaims
}

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type Manager struct {
	config Config
	tokens tokenstore.Store
}

func NewManager(config Config, tokens tokenstore.Store) *Manager {
	return &Manager{
		config: config,
		tokens: tokens,
	}
}

func (m *Manager) GenerateToken(u *portal.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: u.ID.Hex(),
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(m.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.config.JWTSecret), nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := primitive.ObjectIDFromHex(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return claims, nil
}

// Revoke blocks the token until its natural expiry.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return m.tokens.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Middleware requires a valid, unrevoked bearer token.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Bearer token required"})
			return
		}

		claims, err := m.ValidateToken(tokenString)
		if err != nil {
			logger.WithError(err).Warn("Invalid token provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
			return
		}

		revoked, err := m.tokens.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token has been revoked"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole admits the listed roles. Admins are always admitted.
func RequireRole(roles ...portal.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
			return
		}
		if !hasRole(claims.Role, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

func hasRole(role portal.Role, allowed []portal.Role) bool {
	if role == portal.RoleAdmin {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func CurrentClaims(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// CurrentUserID returns the authenticated caller. The ID was checked when
// the token was validated.
func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	claims, ok := CurrentClaims(c)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	return id, err == nil
}

func IsAdmin(c *gin.Context) bool {
	claims, ok := CurrentClaims(c)
	return ok && claims.Role == portal.RoleAdmin
}

func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
