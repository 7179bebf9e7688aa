package networker

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
)

// Synthetic statuses for transport failures. Callers compare them like HTTP codes.
const (
	StatusConnectFailed      = 601
	StatusRemoteDisconnected = 602
	StatusReadTimeout        = 603
	StatusConnectionReset    = 604
	StatusURLError           = 900
	StatusSocketError        = 1000
)

// IsSynthetic reports whether status came from StatusFromError rather than a server.
func IsSynthetic(status int) bool {
	return status == StatusConnectFailed ||
		status == StatusRemoteDisconnected ||
		status == StatusReadTimeout ||
		status == StatusConnectionReset ||
		status == StatusURLError ||
		status == StatusSocketError
}

// StatusFromError maps a client error to a synthetic status.
// Socket errors without a more specific mapping report their errno.
func StatusFromError(err error) int {
	if err == nil {
		return 0
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return StatusConnectFailed
	}

	if errors.Is(err, ErrTooManyRedirects) {
		return StatusURLError
	}

	if errors.Is(err, syscall.ECONNRESET) {
		return StatusConnectionReset
	}

	if isTimeout(err) {
		return StatusReadTimeout
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || strings.HasSuffix(err.Error(), "EOF") {
		return StatusRemoteDisconnected
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return StatusConnectFailed
	}

	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}

	var sysErr *os.SyscallError
	if opErr != nil || errors.As(err, &sysErr) {
		return StatusSocketError
	}

	return StatusURLError
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
