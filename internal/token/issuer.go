package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers any verification failure: bad signature, expiry,
// malformed structure or an unexpected signing algorithm.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims is the payload of an access token. Subject carries the user id.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Username string `json:"username"`
}

type refreshClaims struct {
	jwt.RegisteredClaims
}

// Issuer signs and verifies the two session token types. Access and refresh
// tokens use independent secrets so a leaked refresh token cannot forge
// access-token claims.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewIssuer builds an Issuer from explicit secrets and lifetimes.
func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccess signs a short-lived token carrying the user's identity claims.
func (i *Issuer) IssueAccess(userID, email, username string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
		Email:    email,
		Username: username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
}

// IssueRefresh signs a long-lived token carrying only the user id. The jti
// keeps successive issuances for the same user distinct.
func (i *Issuer) IssueRefresh(userID string) (string, error) {
	now := time.Now()
	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
}

// VerifyAccess validates tokenStr against the access secret and returns its
// claims. Any failure is reported as ErrInvalidToken.
func (i *Issuer) VerifyAccess(tokenStr string) (AccessClaims, error) {
	claims := AccessClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return i.accessSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid || claims.Subject == "" {
		return AccessClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh validates tokenStr against the refresh secret and returns the
// subject user id.
func (i *Issuer) VerifyRefresh(tokenStr string) (string, error) {
	claims := refreshClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return i.refreshSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
