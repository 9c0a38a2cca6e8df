package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/golang-jwt/jwt/v5"
)

var errUnknownToken = stderrors.New("token not in accepted set")

// StaticVerifier accepts a fixed set of tokens.
type StaticVerifier struct {
	tokens mapset.Set[string]
}

// NewStaticVerifier creates a verifier for tokens.
func NewStaticVerifier(tokens ...string) *StaticVerifier {
	return &StaticVerifier{tokens: mapset.NewSet(tokens...)}
}

// Verify implements Verifier. The principal subject is a short token
// fingerprint so the token itself never reaches logs or envelopes.
func (v *StaticVerifier) Verify(_ context.Context, token string) (Principal, error) {
	if !v.tokens.Contains(token) {
		return Principal{}, errUnknownToken
	}
	return Principal{Subject: Fingerprint(token), Method: ModeStatic}, nil
}

// Fingerprint returns a stable, non-reversible short identifier for token.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "tok_" + hex.EncodeToString(sum[:6])
}

// JWTVerifier accepts HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewJWTVerifier creates a verifier. An empty issuer disables the issuer
// check.
func NewJWTVerifier(secret []byte, issuer string) *JWTVerifier {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &JWTVerifier{secret: secret, issuer: issuer, parser: jwt.NewParser(opts...)}
}

// Verify implements Verifier.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Principal, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return Principal{}, err
	}
	subject := claims.Subject
	if subject == "" {
		subject = Fingerprint(token)
	}
	return Principal{Subject: subject, Method: ModeJWT}, nil
}

// OpenVerifier accepts any non-empty token.
type OpenVerifier struct{}

// Verify implements Verifier.
func (OpenVerifier) Verify(_ context.Context, token string) (Principal, error) {
	return Principal{Subject: Fingerprint(token), Method: ModeOpen}, nil
}
