package app

import (
	"context"
	"errors"
	"metadata-negotiator/internal/processor"
	"metadata-negotiator/internal/processor/queue"
	"net/http"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

type NegotiatorApp struct {
	logger         *zap.SugaredLogger
	processor      processor.Processor
	requestsQueue  queue.Queue
	resultsQueue   queue.Queue
	metricsServer  *http.Server
	tracerProvider *trace.TracerProvider
	closeCache     func(ctx context.Context) error

	workers int
	cancel  context.CancelFunc
}

func NewNegotiatorApp(logger *zap.SugaredLogger, proc processor.Processor, requestsQueue, resultsQueue queue.Queue, metricsServer *http.Server,
	tp *trace.TracerProvider, closeCache func(ctx context.Context) error, workers int) *NegotiatorApp {
	return &NegotiatorApp{
		logger:         logger,
		processor:      proc,
		requestsQueue:  requestsQueue,
		resultsQueue:   resultsQueue,
		metricsServer:  metricsServer,
		tracerProvider: tp,
		closeCache:     closeCache,
		workers:        workers,
	}
}

func (app *NegotiatorApp) StartApp(ctx context.Context) error {
	if app.cancel != nil {
		return ErrAlreadyStarted
	}

	if app.metricsServer != nil {
		go func() {
			app.logger.Infow("Serving metrics", "addr", app.metricsServer.Addr)
			if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.logger.Errorw("Metrics server failed", "err", err)
			}
		}()
	}

	workCtx, cancel := context.WithCancel(ctx)
	app.cancel = cancel

	// results outlive the workers so their last messages still get flushed
	go app.resultsQueue.StartQueueProducer(context.WithoutCancel(ctx))
	go app.requestsQueue.StartQueueConsumer(workCtx)

	app.processor.StartWorkers(workCtx, app.workers)

	app.logger.Infow("Negotiator started", "workers", app.workers)
	return nil
}

func (app *NegotiatorApp) StopApp(ctx context.Context) error {
	if app.cancel == nil {
		return ErrNotStarted
	}
	app.cancel()

	stopped := make(chan struct{})
	go func() {
		app.processor.Wait()
		close(stopped)
	}()

	var err error

	select {
	case <-stopped:
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}

	if closeErr := app.requestsQueue.CloseQueue(ctx); closeErr != nil {
		err = errors.Join(err, closeErr)
	}

	if closeErr := app.resultsQueue.CloseQueue(ctx); closeErr != nil {
		err = errors.Join(err, closeErr)
	}

	if app.metricsServer != nil {
		if closeErr := app.metricsServer.Shutdown(ctx); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}

	if app.closeCache != nil {
		if closeErr := app.closeCache(ctx); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}

	if app.tracerProvider != nil {
		if closeErr := app.tracerProvider.Shutdown(ctx); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}

	if err != nil {
		app.logger.Errorw("Negotiator stopped with errors", "err", err)
		return err
	}

	app.logger.Infow("Negotiator stopped")
	return nil
}
