package queue

import (
	"context"
	"errors"
	"metadata-negotiator/internal/utils"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.uber.org/zap"
)

var ErrNoSeeds = errors.New("no kafka seed brokers configured")

type KafkaConfig struct {
	Seeds []string
	// ConsumerGroup and Topic are consumed from; a queue without ConsumerGroup only produces.
	ConsumerGroup string
	Topic         string
	User          string
	Password      string
}

type KafkaQueue struct {
	logger       *zap.SugaredLogger
	KafkaClient  *kgo.Client
	topic        string
	consuming    bool
	consumerChan chan []byte
	producerChan chan []byte
	producing    atomic.Bool
	done         chan struct{}
	// slowConsumer is how long a record waits for the consumer before each warning.
	slowConsumer time.Duration
}

func NewKafkaQueue(logger *zap.SugaredLogger, cfg KafkaConfig) (*KafkaQueue, error) {
	if len(cfg.Seeds) == 0 {
		return nil, ErrNoSeeds
	}

	tracing := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer()))

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Seeds...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.WithHooks(tracing.Hooks()...),
	}

	if cfg.ConsumerGroup != "" {
		opts = append(opts,
			kgo.ConsumerGroup(cfg.ConsumerGroup),
			kgo.ConsumeTopics(cfg.Topic),
			kgo.DisableAutoCommit(),
		)
	}

	if cfg.User != "" {
		opts = append(opts, kgo.SASL(plain.Auth{User: cfg.User, Pass: cfg.Password}.AsMechanism()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	return &KafkaQueue{
		logger:       logger,
		KafkaClient:  client,
		topic:        cfg.Topic,
		consuming:    cfg.ConsumerGroup != "",
		consumerChan: make(chan []byte, ChannelBufferLimit),
		producerChan: make(chan []byte, ChannelBufferLimit),
		done:         make(chan struct{}),
		slowConsumer: queueTimeout,
	}, nil
}

func (q *KafkaQueue) GetProducerChan() chan<- []byte {
	return q.producerChan
}

func (q *KafkaQueue) GetConsumerChan() <-chan []byte {
	return q.consumerChan
}

func (q *KafkaQueue) StartQueueConsumer(ctx context.Context) {
	if !q.consuming {
		q.logger.Warnw("Queue has no consumer group, not consuming", "topic", q.topic)
		return
	}

	timer := time.NewTimer(q.slowConsumer)
	utils.DrainTimer(timer)

	for ctx.Err() == nil {
		fetches := q.getFetches(ctx)
		fetches.EachError(func(topic string, partition int32, err error) {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				q.logger.Warnw("Failed to fetch records from kafka", "topic", topic, "partition", partition, "err", err)
			}
		})

		iter := fetches.RecordIter()

		var recordsToCommit []*kgo.Record

		for !iter.Done() {
			record := iter.Next()

			if record == nil {
				continue
			}

			if !q.deliver(ctx, timer, record) {
				q.commitRecords(recordsToCommit...)
				return
			}

			recordsToCommit = append(recordsToCommit, record)
		}

		if len(recordsToCommit) > 0 {
			q.commitRecords(recordsToCommit...)
		}
	}
}

// deliver blocks until the consumer takes the record or ctx is done. Only delivered records may be committed.
func (q *KafkaQueue) deliver(ctx context.Context, timer *time.Timer, record *kgo.Record) bool {
	defer utils.DrainTimer(timer)

	timer.Reset(q.slowConsumer)

	for {
		select {
		case q.consumerChan <- record.Value:
			return true
		case <-timer.C:
			q.logger.Warnw("Consumer is slow, record still waiting", "topic", record.Topic, "offset", record.Offset)
			timer.Reset(q.slowConsumer)
		case <-ctx.Done():
			return false
		}
	}
}

func (q *KafkaQueue) getFetches(ctx context.Context) kgo.Fetches {
	ctx, cancel := context.WithTimeout(ctx, SingleRequestTimeout)
	defer cancel()

	return q.KafkaClient.PollFetches(ctx)
}

func (q *KafkaQueue) commitRecords(records ...*kgo.Record) {
	if len(records) == 0 {
		return
	}

	commitCtx, commitCancel := context.WithTimeout(context.Background(), SingleRequestTimeout)
	defer commitCancel()

	err := q.KafkaClient.CommitRecords(commitCtx, records...)
	if err != nil {
		q.logger.Warnw("Failed to commit records in kafka", "records", len(records), "err", err)
	}
}

func (q *KafkaQueue) StartQueueProducer(ctx context.Context) {
	if !q.producing.CompareAndSwap(false, true) {
		return
	}
	defer close(q.done)

	items := make([][]byte, 0, ChannelBufferLimit)
	flushTicker := time.NewTicker(tickerTimeout)
	defer flushTicker.Stop()

	flush := func() {
		if len(items) > 0 {
			q.sendToKafka(items)
			items = make([][]byte, 0, ChannelBufferLimit)
		}
	}

	for {
		select {
		case item, ok := <-q.producerChan:
			if !ok {
				flush()
				return
			}
			items = append(items, item)
			if len(items) >= ChannelBufferLimit {
				flush()
			}
		case <-flushTicker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case item, ok := <-q.producerChan:
					if !ok {
						flush()
						return
					}
					items = append(items, item)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (q *KafkaQueue) sendToKafka(items [][]byte) {
	records := make([]*kgo.Record, 0, len(items))

	for _, item := range items {
		records = append(records, &kgo.Record{
			Topic: q.topic,
			Value: item,
		})
	}

	q.produceRecords(records)
}

func (q *KafkaQueue) produceRecords(records []*kgo.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), SingleRequestTimeout)
	defer cancel()

	var wg sync.WaitGroup

	for _, record := range records {
		wg.Add(1)
		q.KafkaClient.Produce(ctx, record, func(r *kgo.Record, err error) {
			defer wg.Done()
			if err != nil {
				q.logger.Warnw("Failed to produce record in kafka", "topic", r.Topic, "err", err)
			}
		})
	}

	wg.Wait()

	q.logger.Infow("Produced items", "topic", q.topic, "items", len(records))
}

// CloseQueue stops accepting messages, flushes what is buffered and closes the client.
func (q *KafkaQueue) CloseQueue(ctx context.Context) error {
	var err error

	if q.producing.Load() {
		err = drainAndCloseChannel(ctx, q.producerChan)

		select {
		case <-q.done:
		case <-ctx.Done():
			err = errors.Join(err, ctx.Err())
		}
	}

	if flushErr := q.KafkaClient.Flush(ctx); flushErr != nil {
		err = errors.Join(err, flushErr)
	}

	q.KafkaClient.Close()
	return err
}
