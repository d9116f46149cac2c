package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/atomic"
)

var (
	// ErrKafkaBrokersRequired is returned when no brokers are configured.
	ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")
	// ErrKafkaGroupRequired is returned when Consume has no consumer group.
	ErrKafkaGroupRequired = errors.New("messaging: kafka consumer group is required")
)

// KafkaConfig configures the Kafka driver.
type KafkaConfig struct {
	Brokers []string
	Dialer  *kafka.Dialer
}

// Kafka is a Messaging backed by kafka-go. Offsets are committed on Ack.
type Kafka struct {
	brokers []string
	dialer  *kafka.Dialer
	closed  *atomic.Bool

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafka validates cfg. Connections are opened lazily per topic.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		brokers: append([]string{}, cfg.Brokers...),
		dialer:  cfg.Dialer,
		closed:  atomic.NewBool(false),
		writers: map[string]*kafka.Writer{},
	}, nil
}

// Close closes every writer. Running consumers stop with their context.
func (k *Kafka) Close() error {
	if k.closed.Swap(true) {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	var err error
	for topic, w := range k.writers {
		err = errors.Join(err, w.Close())
		delete(k.writers, topic)
	}

	return err
}

// Publish writes msg to the topic destination.
func (k *Kafka) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	if k.closed.Load() {
		return ErrClosed
	}

	if err := k.writer(destination).WriteMessages(ctx, kafkaOutgoing(msg, time.Now())); err != nil {
		return fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return nil
}

func (k *Kafka) writer(topic string) *kafka.Writer {
	k.mu.Lock()
	defer k.mu.Unlock()

	if w, ok := k.writers[topic]; ok {
		return w
	}

	transport := &kafka.Transport{}
	if k.dialer != nil {
		transport.SASL = k.dialer.SASLMechanism
		transport.TLS = k.dialer.TLS
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(k.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Transport:              transport,
	}
	k.writers[topic] = w

	return w
}

// Consume reads source as part of the consumer group and blocks until ctx
// is done or the reader fails.
func (k *Kafka) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrKafkaGroupRequired
	}
	if k.closed.Load() {
		return ErrClosed
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  co.group,
		Topic:    source,
		MaxBytes: 10e6,
		Dialer:   k.dialer,
	})

	msgCh := make(chan kafka.Message)
	var fetchErr error

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for m := range msgCh {
				//nolint:errcheck // failures are logged by dispatch
				_ = dispatch(ctx, DriverKafka, handler, &kafkaMessage{reader: reader, msg: m, responded: atomic.NewBool(false)}, co.autoAck)
			}
		})
	}

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			fetchErr = err
			break
		}
		msgCh <- m
	}

	close(msgCh)
	wg.Wait()

	if errors.Is(fetchErr, context.Canceled) || errors.Is(fetchErr, context.DeadlineExceeded) {
		return errors.Join(fetchErr, reader.Close())
	}

	return errors.Join(fmt.Errorf("messaging: kafka consume: %w", fetchErr), reader.Close())
}

func kafkaOutgoing(msg OutgoingMessage, at time.Time) kafka.Message {
	kmsg := kafka.Message{Key: msg.Key, Value: msg.Body, Time: at}
	for k, v := range msg.Headers {
		if k != "" {
			kmsg.Headers = append(kmsg.Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
	}

	return kmsg
}

type kafkaMessage struct {
	reader    *kafka.Reader
	msg       kafka.Message
	responded *atomic.Bool
}

func (m *kafkaMessage) Body() []byte { return m.msg.Value }

func (m *kafkaMessage) Key() []byte { return m.msg.Key }

func (m *kafkaMessage) Header(key string) string {
	for _, h := range m.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}

	return ""
}

// Ack commits the message offset.
func (m *kafkaMessage) Ack(ctx context.Context) error {
	if m.responded.Swap(true) {
		return nil
	}

	return m.reader.CommitMessages(ctx, m.msg)
}

// Nack leaves the offset uncommitted so the group redelivers it after a rebalance.
func (m *kafkaMessage) Nack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.responded.Store(true)

	return nil
}
