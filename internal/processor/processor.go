package processor

import "context"

// Processor turns queued negotiation requests into published results.
type Processor interface {
	StartWorkers(ctx context.Context, workers int)
	Wait()
}
