package classifier

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
)

var gzipMagic = []byte{0x1f, 0x8b}

// decompressed unwraps a gzip body. A body announced as gzip that lacks the gzip header is read as is.
func decompressed(logger *zap.SugaredLogger, body io.Reader) (io.Reader, func()) {
	buffered := bufio.NewReader(body)

	magic, err := buffered.Peek(len(gzipMagic))
	if err != nil || !bytes.Equal(magic, gzipMagic) {
		logger.Warnw("content announced as gzip is not gzipped, reading as is")
		return buffered, func() {}
	}

	gz, err := gzip.NewReader(buffered)
	if err != nil {
		logger.Warnw("gzip header unreadable, reading as is", "err", err)
		return buffered, func() {}
	}

	logger.Infow("retrieving gzipped content")
	return gz, func() { _ = gz.Close() }
}

// budget is what readBudget took from a body.
type budget struct {
	raw        []byte
	size       int64
	truncated  bool
	incomplete bool // the read failed before the end of the body
}

// readBudget reads at most limit bytes. A body that is, or announces to be, larger than limit
// is truncated and cut back to its last complete line, and so is a body whose read fails.
// A declaredLength below zero means the length on the wire says nothing about the content.
func readBudget(logger *zap.SugaredLogger, body io.Reader, declaredLength, limit int64) budget {
	read := budget{truncated: declaredLength > limit}

	raw, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		logger.Warnw("reading response body failed, keeping complete lines only", "read", len(raw), "err", err)
		read.truncated = true
		read.incomplete = true
	}

	if int64(len(raw)) > limit {
		read.truncated = true
		raw = raw[:limit]
	}

	read.size = declaredLength
	if read.size <= 0 || read.incomplete {
		read.size = int64(len(raw))
	}

	if read.truncated {
		logger.Warnw("downloaded content has been truncated", "limit", limit)
		raw = cutAtLineBoundary(raw)
	}

	read.raw = raw
	return read
}

func cutAtLineBoundary(raw []byte) []byte {
	if i := bytes.LastIndexByte(raw, '\n'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// toUTF8 transcodes from the declared charset and replaces whatever is still not valid UTF-8.
func toUTF8(logger *zap.SugaredLogger, raw []byte, label string) []byte {
	if enc, name := charset.Lookup(label); enc != nil && name != "utf-8" {
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			logger.Warnw("charset transcoding failed", "charset", label, "err", err)
		} else {
			raw = decoded
		}
	}

	if utf8.Valid(raw) {
		return raw
	}

	logger.Warnw("content UTF-8 encoding problem, trying to fix")

	fixed, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil || !utf8.Valid(fixed) {
		return bytes.ToValidUTF8(raw, []byte(string(utf8.RuneError)))
	}
	return fixed
}
