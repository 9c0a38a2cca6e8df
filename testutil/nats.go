package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// Message is one recorded publication.
type Message struct {
	Subject string
	Data    []byte
	Header  nats.Header
}

// MockNATSClient is an in-memory stand-in for natsclient.Client that
// records every publication. Thread-safe for concurrent use from multiple
// goroutines.
type MockNATSClient struct {
	mu       sync.RWMutex
	messages map[string][]Message
	err      error
	closed   bool
}

// NewMockNATSClient creates a new mock NATS client.
func NewMockNATSClient() *MockNATSClient {
	return &MockNATSClient{messages: make(map[string][]Message)}
}

// Publish records a message (matches natsclient.Client signature).
func (c *MockNATSClient) Publish(ctx context.Context, subject string, data []byte, header nats.Header) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("client is closed")
	}
	if c.err != nil {
		return c.err
	}

	msg := Message{Subject: subject, Data: append([]byte(nil), data...), Header: nats.Header{}}
	for k, v := range header {
		msg.Header[k] = append([]string(nil), v...)
	}
	c.messages[subject] = append(c.messages[subject], msg)
	return nil
}

// FailWith makes every later Publish return err. A nil err restores
// normal behaviour.
func (c *MockNATSClient) FailWith(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Messages returns a copy of the messages published on subject.
func (c *MockNATSClient) Messages(subject string) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Message(nil), c.messages[subject]...)
}

// Subjects returns how many messages each subject received.
func (c *MockNATSClient) Subjects() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int, len(c.messages))
	for s, msgs := range c.messages {
		out[s] = len(msgs)
	}
	return out
}

// Close rejects further publications.
func (c *MockNATSClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
