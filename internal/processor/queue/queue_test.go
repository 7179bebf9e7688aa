package queue

import (
	"context"
	"metadata-negotiator/internal/utils"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap/zaptest"
)

func TestNewKafkaQueueRequiresSeeds(t *testing.T) {
	_, err := NewKafkaQueue(zaptest.NewLogger(t).Sugar(), KafkaConfig{Topic: "negotiation-requests"})
	assert.ErrorIs(t, err, ErrNoSeeds)
}

func TestNewKafkaQueueProducerOnly(t *testing.T) {
	q, err := NewKafkaQueue(zaptest.NewLogger(t).Sugar(), KafkaConfig{
		Seeds:    []string{"127.0.0.1:1"},
		Topic:    "negotiation-results",
		User:     "negotiator",
		Password: "secret",
	})
	require.NoError(t, err)
	defer q.KafkaClient.Close()

	assert.False(t, q.consuming)

	done := make(chan struct{})
	go func() {
		q.StartQueueConsumer(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("producer-only queue should not consume")
	}
}

func TestDrainAndCloseChannel(t *testing.T) {
	ch := make(chan int, 2)
	ch <- 1

	go func() {
		time.Sleep(20 * time.Millisecond)
		<-ch
	}()

	require.NoError(t, drainAndCloseChannel(context.Background(), ch))
	_, open := <-ch
	assert.False(t, open)

	stuck := make(chan int, 1)
	stuck <- 1
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, drainAndCloseChannel(ctx, stuck), context.DeadlineExceeded)
}

func newConsumingQueue(t *testing.T) *KafkaQueue {
	t.Helper()

	q, err := NewKafkaQueue(zaptest.NewLogger(t).Sugar(), KafkaConfig{
		Seeds:         []string{"127.0.0.1:1"},
		ConsumerGroup: "negotiator",
		Topic:         "negotiation-requests",
	})
	require.NoError(t, err)
	t.Cleanup(q.KafkaClient.Close)

	q.consumerChan = make(chan []byte)
	q.slowConsumer = 10 * time.Millisecond
	return q
}

func TestDeliverWaitsForSlowConsumer(t *testing.T) {
	q := newConsumingQueue(t)
	timer := time.NewTimer(q.slowConsumer)
	utils.DrainTimer(timer)

	delivered := make(chan bool, 1)
	go func() {
		delivered <- q.deliver(context.Background(), timer, &kgo.Record{Topic: "negotiation-requests", Value: []byte("req-1")})
	}()

	time.Sleep(5 * q.slowConsumer)

	select {
	case <-delivered:
		t.Fatal("record should wait for the consumer")
	default:
	}

	assert.Equal(t, []byte("req-1"), <-q.consumerChan)
	assert.True(t, <-delivered)
}

func TestDeliverGivesUpOnCancel(t *testing.T) {
	q := newConsumingQueue(t)
	timer := time.NewTimer(q.slowConsumer)
	utils.DrainTimer(timer)

	ctx, cancel := context.WithTimeout(context.Background(), 5*q.slowConsumer)
	defer cancel()

	assert.False(t, q.deliver(ctx, timer, &kgo.Record{Topic: "negotiation-requests", Value: []byte("req-2")}))
}
