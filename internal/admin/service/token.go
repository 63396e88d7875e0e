package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sr13dr31/belyispisok/internal/admin/models"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

const tokenTTL = 12 * time.Hour

// Claims are the bearer-token claims for the back-office API.
type Claims struct {
	AdminID string `json:"admin_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates back-office bearer tokens (HS256).
type TokenIssuer struct {
	signingKey []byte
	issuer     string
}

func NewTokenIssuer(signingKey, issuer string) *TokenIssuer {
	return &TokenIssuer{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue mints a token for an authenticated administrator.
func (t *TokenIssuer) Issue(user *models.AdminUser, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AdminID: user.ID.String(),
		Role:    string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    t.issuer,
			Subject:   user.Username,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(t.signingKey)
}

// Validate parses a bearer token and returns the administrator identity it
// carries.
func (t *TokenIssuer) Validate(tokenString string) (id.AdminID, models.Role, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return t.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.AdminID{}, "", dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return id.AdminID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return id.AdminID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	adminID, err := id.ParseAdminID(claims.AdminID)
	if err != nil {
		return id.AdminID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return id.AdminID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return adminID, role, nil
}
