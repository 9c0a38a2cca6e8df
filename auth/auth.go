// Package auth authenticates gateway callers from their bearer token.
//
// The Gate only ever sees caller tokens; vendor credentials live inside the
// vendor adapters. Three verifiers are available, selected by Config.Mode:
// a static token set, HS256 JWTs, and an open mode that only checks a token
// is present.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
)

// Modes.
const (
	ModeStatic = "static"
	ModeJWT    = "jwt"
	ModeOpen   = "open"
)

// DefaultToken is the demo caller token accepted by the default static set.
const DefaultToken = "test_token_123"

// Principal is an authenticated caller.
type Principal struct {
	Subject string
	Method  string
}

// Verifier checks a non-empty token.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

// Config selects and configures the verifier.
type Config struct {
	Mode         string   `json:"mode" yaml:"mode"`
	StaticTokens []string `json:"static_tokens,omitempty" yaml:"static_tokens,omitempty"`
	JWTSecret    string   `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"`
	JWTIssuer    string   `json:"jwt_issuer,omitempty" yaml:"jwt_issuer,omitempty"`
}

// DefaultConfig accepts the demo token only.
func DefaultConfig() Config {
	return Config{Mode: ModeStatic, StaticTokens: []string{DefaultToken}}
}

// Validate checks the configuration for the selected mode.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeStatic:
		if len(c.StaticTokens) == 0 {
			return errors.Wrap(errors.ErrMissingConfig, "AuthConfig", "Validate", "static mode needs static_tokens")
		}
	case ModeJWT:
		if len(c.JWTSecret) < 16 {
			return errors.Wrap(errors.ErrInvalidConfig, "AuthConfig", "Validate", "jwt mode needs a jwt_secret of at least 16 bytes")
		}
	case ModeOpen:
	default:
		return errors.Wrap(fmt.Errorf("%w: unknown auth mode %q", errors.ErrInvalidConfig, c.Mode),
			"AuthConfig", "Validate", "check mode")
	}
	return nil
}

// LogValue keeps secrets out of logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mode", c.Mode),
		slog.Int("static_tokens", len(c.StaticTokens)),
		slog.Bool("jwt_secret_set", c.JWTSecret != ""),
		slog.String("jwt_issuer", c.JWTIssuer),
	)
}

// NewVerifier builds the verifier for c.
func NewVerifier(c Config) (Verifier, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Mode {
	case ModeJWT:
		return NewJWTVerifier([]byte(c.JWTSecret), c.JWTIssuer), nil
	case ModeOpen:
		return OpenVerifier{}, nil
	default:
		return NewStaticVerifier(c.StaticTokens...), nil
	}
}

// Gate is the caller authentication stage.
type Gate struct {
	verifier Verifier
	logger   *slog.Logger
}

// NewGate creates a Gate. A nil logger uses slog.Default.
func NewGate(v Verifier, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{verifier: v, logger: logger.With("component", "AuthGate")}
}

// Authorize checks token and returns the caller.
func (g *Gate) Authorize(ctx context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, errors.CallerAuth(errors.ErrTokenRequired, "AuthGate", "Authorize", "Authorization token required")
	}
	p, err := g.verifier.Verify(ctx, token)
	if err != nil {
		g.logger.Debug("caller token rejected", "error", err)
		return Principal{}, errors.CallerAuth(fmt.Errorf("%w: %w", errors.ErrTokenInvalid, err),
			"AuthGate", "Authorize", "Invalid authorization token")
	}
	return p, nil
}

// TokenFromHeader extracts the token from an Authorization header value.
// Anything other than a Bearer credential yields "".
func TokenFromHeader(h string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
