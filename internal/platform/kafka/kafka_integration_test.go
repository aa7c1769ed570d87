//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"filer/internal/platform/kafka"
	"filer/internal/platform/kafka/consumer"
	"filer/pkg/testutil/containers"
)

func TestPublishAndConsume(t *testing.T) {
	rp := containers.GetManager().Redpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const topic = "filer-it"
	require.NoError(t, kafka.EnsureTopics(ctx, rp.Brokers, 1, 1, topic, ""))
	require.NoError(t, kafka.EnsureTopics(ctx, rp.Brokers, 1, 1, topic))

	producer, err := kafka.NewProducer(rp.Brokers)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, producer.Publish(ctx, topic, []byte("42"), []byte(`{"filingIdentifier":42}`),
		map[string]string{"filer-attempt": "2"}))

	received := make(chan *consumer.Message, 1)
	c, err := consumer.New(consumer.Config{
		Brokers: rp.Brokers,
		Group:   "filer-it",
		Topics:  []string{topic},
	}, consumer.HandlerFunc(func(_ context.Context, msg *consumer.Message) error {
		select {
		case received <- msg:
		default:
		}
		return nil
	}))
	require.NoError(t, err)
	defer c.Close()

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.Run(runCtx) }()

	select {
	case msg := <-received:
		require.Equal(t, topic, msg.Topic)
		require.Equal(t, "42", string(msg.Key))
		require.JSONEq(t, `{"filingIdentifier":42}`, string(msg.Value))
		require.Equal(t, "2", msg.Headers["filer-attempt"])
	case <-ctx.Done():
		t.Fatal("message not consumed")
	}
	stop()
	<-done
}
