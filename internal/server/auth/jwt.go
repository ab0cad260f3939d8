// Package auth verifies bearer tokens issued by the account service.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the verified caller. Handlers receive it as an argument.
type Identity struct {
	UserID string
}

// Claims is the token payload. The user id travels in "id"; "sub" is
// accepted when "id" is absent.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Verifier checks HMAC-signed tokens against a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a raw token string.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrMissingToken
	}
	if len(v.secret) == 0 {
		return Identity{}, fmt.Errorf("%w: verifier has no secret", ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return Identity{}, fmt.Errorf("%w: no user id claim", ErrInvalidToken)
	}
	return Identity{UserID: userID}, nil
}

// VerifyRequest extracts the token from the request and verifies it.
func (v *Verifier) VerifyRequest(r *http.Request) (Identity, error) {
	return v.Verify(TokenFromRequest(r))
}

// TokenFromRequest looks in the Authorization bearer header, then the
// x-auth-token header, then the "token" cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	if h := r.Header.Get("x-auth-token"); h != "" {
		return strings.TrimSpace(h)
	}
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}

// Sign issues a token for userID. The service never hands tokens out; this
// exists for tests and local tooling.
func (v *Verifier) Sign(userID string, claims jwt.RegisteredClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:           userID,
		RegisteredClaims: claims,
	})
	return token.SignedString(v.secret)
}
