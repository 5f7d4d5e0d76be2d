// Package auth issues and verifies the stateless bearer tokens used by the API.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "feedhub-api"
	tokenAudience = "feedhub-client"

	// TokenTTL is the fixed token lifetime. Tokens are stateless; expiry is
	// the only revocation mechanism.
	TokenTTL = time.Hour
)

// ErrInvalidToken is returned for any token that fails verification. The
// cause (signature, expiry, structure) is deliberately not distinguished.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the verified identity carried by a token.
type Claims struct {
	UserID uint
	Email  string
}

// TokenIssuer signs and verifies HS256 tokens with an injected secret.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer returns an issuer signing with the given secret.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// Issue creates a signed token for the user, valid for TokenTTL.
func (t *TokenIssuer) Issue(userID uint, email string) (string, error) {
	if len(t.secret) == 0 {
		return "", errors.New("token signing secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(userID), 10),
		"email": email,
		"iss":   tokenIssuer,
		"aud":   tokenAudience,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(TokenTTL).Unix(),
		"jti":   generateJTI(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses and validates a raw token string and returns its claims.
// Any failure, including signing-method confusion, yields ErrInvalidToken.
func (t *TokenIssuer) Verify(raw string) (Claims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	sub, err := mapClaims.GetSubject()
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || userID == 0 {
		return Claims{}, ErrInvalidToken
	}

	email, _ := mapClaims["email"].(string)

	return Claims{UserID: uint(userID), Email: email}, nil
}

// generateJTI returns a unique token identifier.
func generateJTI(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8])
}
