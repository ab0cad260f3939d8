package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	v := NewVerifier("s3cret")

	t.Run("valid token", func(t *testing.T) {
		tok, err := v.Sign("U1", jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		require.NoError(t, err)

		id, err := v.Verify(tok)
		require.NoError(t, err)
		require.Equal(t, "U1", id.UserID)
	})

	t.Run("falls back to subject", func(t *testing.T) {
		tok, err := v.Sign("", jwt.RegisteredClaims{Subject: "U9"})
		require.NoError(t, err)

		id, err := v.Verify(tok)
		require.NoError(t, err)
		require.Equal(t, "U9", id.UserID)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := v.Verify("")
		require.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := NewVerifier("other").Sign("U1", jwt.RegisteredClaims{})
		require.NoError(t, err)

		_, err = v.Verify(tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := v.Sign("U1", jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		})
		require.NoError(t, err)

		_, err = v.Verify(tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no user id", func(t *testing.T) {
		tok, err := v.Sign("", jwt.RegisteredClaims{})
		require.NoError(t, err)

		_, err = v.Verify(tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not.a.jwt")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unconfigured secret rejects everything", func(t *testing.T) {
		tok, err := v.Sign("U1", jwt.RegisteredClaims{})
		require.NoError(t, err)

		_, err = NewVerifier("").Verify(tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }, "abc"},
		{"lowercase bearer", func(r *http.Request) { r.Header.Set("Authorization", "bearer abc") }, "abc"},
		{"x-auth-token header", func(r *http.Request) { r.Header.Set("x-auth-token", "def") }, "def"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: "ghi"}) }, "ghi"},
		{"bearer wins over cookie", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer abc")
			r.AddCookie(&http.Cookie{Name: "token", Value: "ghi"})
		}, "abc"},
		{"nothing", func(r *http.Request) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			require.Equal(t, tt.want, TokenFromRequest(r))
		})
	}
}
