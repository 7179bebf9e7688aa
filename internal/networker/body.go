package networker

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

var ErrBodyReadTimeout = fmt.Errorf("response body read stalled: %w", os.ErrDeadlineExceeded)

// idleTimeoutBody fails a Read that makes no progress for timeout. A body that keeps streaming is never cut.
type idleTimeoutBody struct {
	body    io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
	expired atomic.Bool
}

func newIdleTimeoutBody(body io.ReadCloser, timeout time.Duration) io.ReadCloser {
	if body == nil || timeout <= 0 {
		return body
	}

	b := &idleTimeoutBody{body: body, timeout: timeout}
	b.timer = time.AfterFunc(timeout, func() {
		b.expired.Store(true)
		_ = body.Close()
	})
	b.timer.Stop()

	return b
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	if b.expired.Load() {
		return 0, ErrBodyReadTimeout
	}

	b.timer.Reset(b.timeout)
	n, err := b.body.Read(p)
	b.timer.Stop()

	if err != nil && b.expired.Load() {
		return n, ErrBodyReadTimeout
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.timer.Stop()
	return b.body.Close()
}
