package gateway

import (
	"context"

	"github.com/YGNTECHSTARTUP/ecoquest/auth"
	"github.com/YGNTECHSTARTUP/ecoquest/reading"
)

// Service answers unified meter requests. *Gateway implements it; transports
// such as gateway/http depend on this interface only.
type Service interface {
	Handle(ctx context.Context, req Request) (*Envelope, error)

	// Authorize runs the auth stage alone. Transports use it to reject a
	// caller once before fanning a request out.
	Authorize(ctx context.Context, token string) (auth.Principal, error)
}

// Publisher receives every successfully assembled envelope.
//
// Publication is best effort: the gateway logs and counts a failed publish
// but still returns the envelope to the caller.
type Publisher interface {
	Publish(ctx context.Context, brand reading.Brand, msgID string, v any) error
}
