package utils

import (
	stderrors "errors"
	"time"

	"schedshare/core/config"
	"schedshare/core/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenData struct {
	UserID uuid.UUID
	Email  string
}

type appClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed bearer token for the given user.
func GenerateToken(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	cfg, ok := config.GetSafe()
	if !ok {
		return "", errors.NewAppError(errors.ErrInternalServer, "config not initialized", nil)
	}

	claims := appClaims{
		UserID: userID.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ValidateAndParseToken verifies the signature and expiry of a bearer token
// and extracts the user identity.
func ValidateAndParseToken(tokenString string) (*TokenData, error) {
	cfg, ok := config.GetSafe()
	if !ok {
		return nil, errors.NewAppError(errors.ErrInternalServer, "config not initialized", nil)
	}

	var claims appClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewAppError(errors.ErrInvalidTokenFormat, "unexpected signing method", nil)
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.NewAppError(errors.ErrTokenExpired, "token expired", err)
		}
		return nil, errors.NewAppError(errors.ErrUnauthorized, "invalid token", err)
	}
	if !token.Valid {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "invalid token", nil)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidTokenFormat, "invalid user id in token", err)
	}

	return &TokenData{UserID: userID, Email: claims.Email}, nil
}
