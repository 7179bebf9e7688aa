package processor

import (
	"context"
	"encoding/json"
	"metadata-negotiator/internal/negotiator"
	"metadata-negotiator/internal/processor/queue"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type QueueProcessor struct {
	logger        *zap.SugaredLogger
	negotiator    negotiator.Negotiator
	requestsQueue queue.Queue
	resultsQueue  queue.Queue
	limiter       *rate.Limiter
	wg            sync.WaitGroup
}

// NewQueueProcessor builds a processor that negotiates at most ratePerSecond requests per second, unlimited when not positive.
func NewQueueProcessor(logger *zap.SugaredLogger, n negotiator.Negotiator, requestsQueue queue.Queue, resultsQueue queue.Queue, ratePerSecond float64) *QueueProcessor {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), max(1, int(ratePerSecond)))
	}

	return &QueueProcessor{
		logger:        logger,
		negotiator:    n,
		requestsQueue: requestsQueue,
		resultsQueue:  resultsQueue,
		limiter:       limiter,
	}
}

func (p *QueueProcessor) StartWorkers(ctx context.Context, workers int) {
	for i := range max(1, workers) {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Wait blocks until every worker returned.
func (p *QueueProcessor) Wait() {
	p.wg.Wait()
}

func (p *QueueProcessor) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.Infow("Started negotiation worker", "worker", id)
	defer p.logger.Infow("Stopped negotiation worker", "worker", id)

	requests := p.requestsQueue.GetConsumerChan()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-requests:
			if !ok {
				return
			}
			p.handle(ctx, msg)
		}
	}
}

func (p *QueueProcessor) handle(ctx context.Context, msg []byte) {
	req, err := DecodeRequest(msg)
	if err != nil {
		p.logger.Warnw("Skipping request message", "record", string(msg), "err", err)
		return
	}

	if err := p.limiter.Wait(ctx); err != nil {
		p.logger.Warnw("Rate limiter aborted request", "id", req.ID, "err", err)
		return
	}

	result := p.negotiator.Negotiate(ctx, req)

	out, err := json.Marshal(NewResultMessage(req, result))
	if err != nil {
		p.logger.Errorw("Failed to marshal result to json", "id", req.ID, "url", req.URL, "err", err)
		return
	}

	select {
	case p.resultsQueue.GetProducerChan() <- out:
	case <-ctx.Done():
		p.logger.Warnw("Dropping result on shutdown", "id", req.ID, "url", req.URL)
	}
}
