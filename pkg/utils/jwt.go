package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"eals-backend/pkg/logger"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingToken = errors.New("missing token")
)

type JWTClaims struct {
	EmployeeID string `json:"employee_id"`
	Email      string `json:"email"`
	Role       string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type AdminContext struct {
	EmployeeID string
	Email      string
	Role       string
}

// GenerateToken issues a signed admin token for the given employee
func GenerateToken(employeeID, email, role, jwtSecret string, ttl time.Duration) (string, error) {
	claims := JWTClaims{
		EmployeeID: employeeID,
		Email:      email,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// ValidateToken parses and validates a token string
func ValidateToken(tokenString, jwtSecret string) (*AdminContext, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	if strings.HasPrefix(tokenString, "Bearer ") {
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &AdminContext{
		EmployeeID: claims.EmployeeID,
		Email:      claims.Email,
		Role:       claims.Role,
	}, nil
}

func ExtractTokenFromHeader(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}

func GetAdminFromContext(c *fiber.Ctx) (*AdminContext, error) {
	admin := c.Locals("admin")

	if admin == nil {
		logger.Warn(logger.CategoryAuth, "get_admin_context", "Admin not found in context", nil)
		return nil, errors.New("admin not found in context")
	}

	adminCtx, ok := admin.(*AdminContext)
	if !ok {
		logger.Warn(logger.CategoryAuth, "get_admin_context", "Invalid admin context type", map[string]interface{}{"type": logger.GetTypeName(admin)})
		return nil, errors.New("invalid admin context type")
	}

	return adminCtx, nil
}
