package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type fakeMessage struct {
	acked, nacked int
}

func (*fakeMessage) Body() []byte         { return []byte("{}") }
func (*fakeMessage) Key() []byte          { return nil }
func (*fakeMessage) Header(string) string { return "" }

func (m *fakeMessage) Ack(context.Context) error {
	m.acked++
	return nil
}

func (m *fakeMessage) Nack(context.Context) error {
	m.nacked++
	return nil
}

func TestConsumeOptions(t *testing.T) {
	co := newConsumeOptions()
	assert.Equal(t, consumeOptions{concurrency: 1}, co)

	co = newConsumeOptions(WithConcurrency(-3), WithGroup("security-audit"), WithAutoAck(true), nil)
	assert.Equal(t, consumeOptions{concurrency: 1, group: "security-audit", autoAck: true}, co)

	assert.Equal(t, 4, newConsumeOptions(WithConcurrency(4)).concurrency)
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("ack on success", func(t *testing.T) {
		m := &fakeMessage{}
		require.NoError(t, dispatch(ctx, DriverNATS, func(context.Context, Message) error { return nil }, m, true))
		assert.Equal(t, 1, m.acked)
		assert.Equal(t, 0, m.nacked)
	})

	t.Run("nack on error", func(t *testing.T) {
		m := &fakeMessage{}
		require.NoError(t, dispatch(ctx, DriverKafka, func(context.Context, Message) error { return errors.New("db down") }, m, true))
		assert.Equal(t, 1, m.nacked)
	})

	t.Run("panic becomes error", func(t *testing.T) {
		m := &fakeMessage{}
		err := dispatch(ctx, DriverNATS, func(context.Context, Message) error { panic("boom") }, m, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in nats handler: boom")
		assert.Zero(t, m.acked+m.nacked)
	})
}

func TestNewFromDriver(t *testing.T) {
	_, err := NewFromDriver("nsq", FactoryOptions{})
	require.ErrorIs(t, err, ErrUnknownDriver)

	_, err = NewFromDriver("nats", FactoryOptions{})
	require.ErrorIs(t, err, ErrNATSURLRequired)

	_, err = NewFromDriver(" Kafka ", FactoryOptions{})
	require.ErrorIs(t, err, ErrKafkaBrokersRequired)

	m, err := NewFromDriver(DriverKafka, FactoryOptions{Kafka: KafkaConfig{Brokers: []string{"localhost:9092"}}})
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Publish(context.Background(), "security.events", OutgoingMessage{}), ErrClosed)
}

func TestKafka_ConsumeValidation(t *testing.T) {
	k, err := NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)

	noop := func(context.Context, Message) error { return nil }
	ctx := context.Background()

	require.ErrorIs(t, k.Consume(ctx, "", noop), ErrDestinationRequired)
	require.ErrorIs(t, k.Consume(ctx, "security.events", nil), ErrHandlerRequired)
	require.ErrorIs(t, k.Consume(ctx, "security.events", noop), ErrKafkaGroupRequired)
	require.ErrorIs(t, k.Publish(ctx, "", OutgoingMessage{}), ErrDestinationRequired)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, k.Consume(canceled, "security.events", noop, WithGroup("g")), context.Canceled)
}

func TestWireConversion(t *testing.T) {
	out := OutgoingMessage{
		Body:    []byte(`{"kind":"mfa_enabled"}`),
		Key:     []byte("42"),
		Headers: map[string]string{"X-Correlation-ID": "cid-1", "": "dropped"},
	}

	nmsg := natsOutgoing("security.events", out)
	assert.Equal(t, "security.events", nmsg.Subject)
	assert.Equal(t, out.Body, nmsg.Data)
	assert.Equal(t, "cid-1", nmsg.Header.Get("X-Correlation-ID"))
	assert.Len(t, nmsg.Header, 1)

	received := &natsMessage{msg: nmsg, responded: atomic.NewBool(false)}
	assert.Equal(t, "cid-1", received.Header("X-Correlation-ID"))
	assert.Nil(t, received.Key())

	at := time.Unix(1_700_000_000, 0)
	kmsg := kafkaOutgoing(out, at)
	assert.Equal(t, out.Key, kmsg.Key)
	assert.Equal(t, at, kmsg.Time)
	assert.Equal(t, []kafka.Header{{Key: "X-Correlation-ID", Value: []byte("cid-1")}}, kmsg.Headers)

	km := &kafkaMessage{msg: kmsg, responded: atomic.NewBool(false)}
	assert.Equal(t, "cid-1", km.Header("X-Correlation-ID"))
	assert.Empty(t, km.Header("missing"))
	require.NoError(t, km.Nack(context.Background()))
	require.NoError(t, km.Ack(context.Background()))
}
