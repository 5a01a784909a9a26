// Package authtoken issues and reads the HS256 session tokens shared by the
// REST backend and the terminal client.
package authtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "carehub"

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 24 * time.Hour

// ErrExpired is returned for a well-formed token past its expiry.
var ErrExpired = errors.New("session token expired")

// Claims is the token payload.
type Claims struct {
	jwt.RegisteredClaims
	// UserID identifies the notification recipient.
	UserID string `json:"user_id"`
	// Name is an optional display name.
	Name string `json:"name,omitempty"`
}

// Issue signs a token for userID valid for ttl from now.
func Issue(secret, userID, name string, now time.Time, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("issuing token: user id is required")
	}
	if secret == "" {
		return "", errors.New("issuing token: secret is required")
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
		UserID: userID,
		Name:   name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tokenString.
func Verify(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpired
	}
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.UserID == "" {
		return nil, errors.New("invalid token: missing user_id")
	}
	return claims, nil
}

// Inspect reads the claims without checking the signature. The client
// uses it to learn who it is signed in as; the backend still verifies
// every request. Expiry is checked against now.
func Inspect(tokenString string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	if claims.UserID == "" {
		return nil, errors.New("reading token: missing user_id")
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	return claims, nil
}
