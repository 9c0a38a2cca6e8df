package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
)

const secret = "0123456789abcdef0123456789abcdef"

func signed(t *testing.T, claims jwt.RegisteredClaims, key string, method jwt.SigningMethod) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

func TestTokenFromHeader(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer test_token_123", "test_token_123"},
		{"bearer   test_token_123 ", "test_token_123"},
		{"Basic dXNlcjpwYXNz", ""},
		{"test_token_123", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenFromHeader(tt.header))
		})
	}
}

func TestGate_Static(t *testing.T) {
	v, err := NewVerifier(DefaultConfig())
	require.NoError(t, err)
	g := NewGate(v, nil)

	p, err := g.Authorize(context.Background(), "test_token_123")
	require.NoError(t, err)
	assert.Equal(t, ModeStatic, p.Method)
	assert.NotContains(t, p.Subject, "test_token_123")

	_, err = g.Authorize(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsCallerAuth(err))
	assert.Equal(t, "Authorization token required", errors.PublicMessage(err))
	assert.ErrorIs(t, err, errors.ErrTokenRequired)

	_, err = g.Authorize(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsCallerAuth(err))
	assert.Equal(t, "Invalid authorization token", errors.PublicMessage(err))
	assert.ErrorIs(t, err, errors.ErrTokenInvalid)
	assert.Equal(t, 401, errors.HTTPStatus(err))
}

func TestGate_JWT(t *testing.T) {
	v, err := NewVerifier(Config{Mode: ModeJWT, JWTSecret: secret, JWTIssuer: "ecoquest"})
	require.NoError(t, err)
	g := NewGate(v, nil)

	valid := signed(t, jwt.RegisteredClaims{
		Subject:   "test_user_123",
		Issuer:    "ecoquest",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, secret, jwt.SigningMethodHS256)

	p, err := g.Authorize(context.Background(), valid)
	require.NoError(t, err)
	assert.Equal(t, "test_user_123", p.Subject)
	assert.Equal(t, ModeJWT, p.Method)

	rejected := map[string]string{
		"expired": signed(t, jwt.RegisteredClaims{Subject: "u", Issuer: "ecoquest",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}, secret, jwt.SigningMethodHS256),
		"wrong issuer": signed(t, jwt.RegisteredClaims{Subject: "u", Issuer: "other",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}, secret, jwt.SigningMethodHS256),
		"wrong key": signed(t, jwt.RegisteredClaims{Subject: "u", Issuer: "ecoquest",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}, "another-secret-of-32-bytes-long!", jwt.SigningMethodHS256),
		"wrong alg": signed(t, jwt.RegisteredClaims{Subject: "u", Issuer: "ecoquest",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}, secret, jwt.SigningMethodHS512),
		"no expiry": signed(t, jwt.RegisteredClaims{Subject: "u", Issuer: "ecoquest"}, secret, jwt.SigningMethodHS256),
		"garbage":   "not.a.jwt",
	}
	for name, tok := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := g.Authorize(context.Background(), tok)
			assert.True(t, errors.IsCallerAuth(err))
			assert.Equal(t, "Invalid authorization token", errors.PublicMessage(err))
		})
	}
}

func TestGate_Open(t *testing.T) {
	v, err := NewVerifier(Config{Mode: ModeOpen})
	require.NoError(t, err)
	g := NewGate(v, nil)

	_, err = g.Authorize(context.Background(), "anything")
	assert.NoError(t, err)
	_, err = g.Authorize(context.Background(), "   ")
	assert.True(t, errors.IsCallerAuth(err))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.ErrorIs(t, Config{Mode: ModeStatic}.Validate(), errors.ErrMissingConfig)
	assert.ErrorIs(t, Config{Mode: ModeJWT, JWTSecret: "short"}.Validate(), errors.ErrInvalidConfig)
	assert.ErrorIs(t, Config{Mode: "ldap"}.Validate(), errors.ErrInvalidConfig)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("test_token_123")
	assert.Equal(t, a, Fingerprint("test_token_123"))
	assert.NotEqual(t, a, Fingerprint("test_token_124"))
	assert.Len(t, a, len("tok_")+12)
}
