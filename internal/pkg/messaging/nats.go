package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"
)

// ErrNATSURLRequired is returned when the NATS server URL is missing.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// NATSConfig configures the NATS driver.
type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS is a Messaging backed by core NATS. Queue groups give each message
// to one member of the group.
type NATS struct {
	conn   *nats.Conn
	closed *atomic.Bool
}

// NewNATS connects to cfg.URL.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn, closed: atomic.NewBool(false)}, nil
}

// Close drains subscriptions and closes the connection.
func (n *NATS) Close() error {
	if n.closed.Swap(true) {
		return nil
	}

	return n.conn.Drain()
}

// Publish sends msg to the subject destination and flushes.
func (n *NATS) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	if n.closed.Load() {
		return ErrClosed
	}

	nmsg := natsOutgoing(destination, msg)
	if err := n.conn.PublishMsg(nmsg); err != nil {
		return fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("messaging: nats flush: %w", err)
	}

	return nil
}

// Consume subscribes to source, in the queue group when one is set.
func (n *NATS) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	if n.closed.Load() {
		return ErrClosed
	}

	co := newConsumeOptions(opts...)
	msgCh := make(chan *nats.Msg, co.concurrency)

	sub, err := n.conn.QueueSubscribe(source, co.group, func(m *nats.Msg) {
		select {
		case msgCh <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for m := range msgCh {
				//nolint:errcheck // failures are logged by dispatch
				_ = dispatch(ctx, DriverNATS, handler, &natsMessage{msg: m, responded: atomic.NewBool(false)}, co.autoAck)
			}
		})
	}

	<-ctx.Done()

	derr := sub.Drain()
	close(msgCh)
	wg.Wait()

	return errors.Join(ctx.Err(), derr)
}

func natsOutgoing(subject string, msg OutgoingMessage) *nats.Msg {
	nmsg := nats.NewMsg(subject)
	nmsg.Data = msg.Body
	for k, v := range msg.Headers {
		if k != "" {
			nmsg.Header.Set(k, v)
		}
	}

	return nmsg
}

type natsMessage struct {
	msg       *nats.Msg
	responded *atomic.Bool
}

func (m *natsMessage) Body() []byte { return m.msg.Data }

func (m *natsMessage) Key() []byte { return nil }

func (m *natsMessage) Header(key string) string {
	if m.msg.Header == nil {
		return ""
	}
	return m.msg.Header.Get(key)
}

// Ack is a no-op for core NATS subscriptions without a reply subject.
func (m *natsMessage) Ack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.responded.Swap(true) {
		return nil
	}
	if err := m.msg.Ack(); err != nil && !natsAckUnsupported(err) {
		return err
	}

	return nil
}

func (m *natsMessage) Nack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.responded.Swap(true) {
		return nil
	}
	if err := m.msg.Nak(); err != nil && !natsAckUnsupported(err) {
		return err
	}

	return nil
}

func natsAckUnsupported(err error) bool {
	return errors.Is(err, nats.ErrMsgNoReply) || errors.Is(err, nats.ErrMsgNotBound)
}
