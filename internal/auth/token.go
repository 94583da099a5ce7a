package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mikanbako/pocketquest/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the session token payload. FamilyID and Role are embedded
// so request handling does not need a user lookup per request.
type Claims struct {
	FamilyID int64      `json:"fid"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}

func (ti *TokenIssuer) Issue(user *model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		FamilyID: user.FamilyID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates the signature and expiry and returns the auth context
// encoded in the token.
func (ti *TokenIssuer) Parse(tokenStr string) (AuthContext, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil {
		return AuthContext{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return AuthContext{}, ErrInvalidToken
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil || userID <= 0 {
		return AuthContext{}, ErrInvalidToken
	}
	return AuthContext{
		UserID:   userID,
		FamilyID: claims.FamilyID,
		Role:     claims.Role,
	}, nil
}
