package messaging

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrDestinationRequired is returned when the subject or topic is empty.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("messaging: client closed")
)

// Messaging publishes and consumes messages.
type Messaging interface {
	io.Closer

	// Publish sends msg to destination (NATS subject, Kafka topic).
	Publish(ctx context.Context, destination string, msg OutgoingMessage) error

	// Consume blocks, delivering messages from source to handler until ctx
	// is done or the client is closed.
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one message. With auto-ack enabled a nil error acks
// and a non-nil error nacks.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a message to publish.
type OutgoingMessage struct {
	Body []byte
	// Key routes the message to a Kafka partition. NATS ignores it.
	Key     []byte
	Headers map[string]string
}

// Message is a received message.
type Message interface {
	Body() []byte
	Key() []byte
	Header(key string) string
	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}
