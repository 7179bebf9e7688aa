package queue

import (
	"context"
	"time"
)

// drainAndCloseChannel waits for readers to empty channel, then closes it.
func drainAndCloseChannel[T any](ctx context.Context, channel chan T) error {
	ticker := time.NewTicker(tickerTimeout / 10)
	defer ticker.Stop()

	for len(channel) > 0 {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	close(channel)
	return nil
}
