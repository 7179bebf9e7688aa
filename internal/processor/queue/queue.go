package queue

import (
	"context"
	"time"
)

const (
	ChannelBufferLimit = 50

	SingleRequestTimeout = 30 * time.Second
	queueTimeout         = 1 * time.Minute
	tickerTimeout        = 1 * time.Second
)

// Queue moves raw messages between a broker and in-process channels.
type Queue interface {
	GetProducerChan() chan<- []byte
	GetConsumerChan() <-chan []byte
	StartQueueConsumer(ctx context.Context)
	StartQueueProducer(ctx context.Context)
	CloseQueue(ctx context.Context) error
}
