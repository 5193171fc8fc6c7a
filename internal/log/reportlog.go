package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// ReportLogger handles raw physical-report logging with optional file output.
type ReportLogger interface {
	Log(step int, data []byte)
}

// reportLogger implements ReportLogger with thread-safe output.
type reportLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewReport creates a new ReportLogger. If writer is nil, returns a no-op
// logger.
func NewReport(w io.Writer) ReportLogger {
	return &reportLogger{w: w}
}

// Log emits a single-line report log with timestamp, step index and hex dump.
// A step of -1 marks reports outside sequence playback (manual input, neutral
// reports on stop).
func (r *reportLogger) Log(step int, data []byte) {
	if len(data) == 0 || r.w == nil {
		return
	}

	var hexbuf bytes.Buffer
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			hexbuf.WriteByte(' ')
		}
		hexbuf.WriteByte(hexdigits[b>>4])
		hexbuf.WriteByte(hexdigits[b&0x0f])
	}

	line := fmt.Sprintf("%s step=%d report: %d bytes, hex: %s\n",
		time.Now().Format("2006/01/02 15:04:05"),
		step,
		len(data),
		hexbuf.String())

	r.mu.Lock()
	_, _ = r.w.Write([]byte(line))
	r.mu.Unlock()
}
