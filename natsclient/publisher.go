package natsclient

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/reading"
)

// DefaultSubjectPrefix is the subject root for published readings.
const DefaultSubjectPrefix = "meters.readings"

// Header names set on every published reading.
const (
	HeaderBrand       = "Ecoquest-Brand"
	HeaderContentType = "Content-Type"
)

// publisher is the part of Client the ReadingPublisher needs.
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, header nats.Header) error
}

// ReadingPublisher fans validated readings out on NATS, one subject per
// brand.
type ReadingPublisher struct {
	client publisher
	prefix string
}

// NewReadingPublisher creates a publisher. An empty prefix uses
// DefaultSubjectPrefix.
func NewReadingPublisher(client publisher, prefix string) *ReadingPublisher {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &ReadingPublisher{client: client, prefix: prefix}
}

// Subject returns the subject readings for brand are published on.
func (p *ReadingPublisher) Subject(brand reading.Brand) string {
	return p.prefix + "." + strings.ToLower(string(brand))
}

// Publish marshals v as JSON and publishes it under msgID, normally the
// gateway request id, so consumers can tie a reading to its request and
// JetStream can drop a republished copy. An empty msgID gets a fresh uuid.
func (p *ReadingPublisher) Publish(ctx context.Context, brand reading.Brand, msgID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "ReadingPublisher", "Publish", "marshal reading")
	}

	if msgID == "" {
		msgID = uuid.NewString()
	}
	header := nats.Header{}
	header.Set(nats.MsgIdHdr, msgID)
	header.Set(HeaderBrand, string(brand))
	header.Set(HeaderContentType, "application/json")

	return p.client.Publish(ctx, p.Subject(brand), data, header)
}
