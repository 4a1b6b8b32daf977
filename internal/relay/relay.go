// Package relay forwards an upstream event stream to a client unchanged.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/logger"
	"github.com/bizmatters/design-research-gateway/internal/models"
)

const (
	defaultBufferSize = 4096
	logEvery          = 5
	debugPreviewLen   = 100
)

// Flusher is implemented by writers that buffer, such as gin's ResponseWriter.
type Flusher interface {
	Flush()
}

// Options tune a single Run.
type Options struct {
	// Debug logs every chunk and adds diagnostics to the error event.
	Debug bool
	// Observer sees every chunk after it was written. The slice is reused
	// once Observer returns.
	Observer func(chunk []byte)
}

// Stats summarises a finished relay.
type Stats struct {
	Chunks   int
	Bytes    int64
	Duration time.Duration
	// ReadErr is the upstream failure that was reported in-band, if any.
	ReadErr error
}

// Relay copies upstream chunks to the client as they arrive.
type Relay struct {
	logger     *zap.Logger
	bufferSize int
}

// New creates a relay. A nil logger disables logging.
func New(log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{logger: log, bufferSize: defaultBufferSize}
}

// Run forwards src to dst until EOF. An upstream read failure is turned into
// one error event followed by the [DONE] frame and Run returns nil. A
// cancelled context or a failed client write stops the loop with an error.
func (r *Relay) Run(ctx context.Context, src io.Reader, dst io.Writer, opts Options) (Stats, error) {
	start := time.Now()
	stats := Stats{}
	buf := make([]byte, r.bufferSize)

	for {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			stats.Chunks++
			stats.Bytes += int64(n)
			r.logChunk(stats.Chunks, chunk, opts.Debug)

			if _, err := dst.Write(chunk); err != nil {
				stats.Duration = time.Since(start)
				return stats, fmt.Errorf("failed to write chunk %d: %w", stats.Chunks, err)
			}
			flush(dst)

			if opts.Observer != nil {
				opts.Observer(chunk)
			}
		}

		if readErr == nil {
			continue
		}
		stats.Duration = time.Since(start)
		if errors.Is(readErr, io.EOF) {
			r.logger.Info("Stream completed",
				zap.Int("chunks", stats.Chunks),
				zap.Int64("bytes", stats.Bytes),
				zap.Duration("duration", stats.Duration))
			return stats, nil
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		stats.ReadErr = readErr
		r.logger.Error("Stream read failed", zap.Error(readErr), zap.Int("chunks", stats.Chunks))
		if err := r.writeFailure(dst, readErr, opts); err != nil {
			r.logger.Error("Failed to write stream error event", zap.Error(err))
		}
		if opts.Observer != nil {
			opts.Observer(ErrorFrame(readErr, opts.Debug))
			opts.Observer(DoneFrame())
		}
		return stats, nil
	}
}

func (r *Relay) logChunk(n int, chunk []byte, debug bool) {
	if n%logEvery != 0 && !debug {
		return
	}
	fields := []zap.Field{zap.Int("chunk", n), zap.Int("size", len(chunk))}
	if debug {
		fields = append(fields, zap.String("preview", logger.Preview(string(chunk), debugPreviewLen)))
	}
	r.logger.Info("Relayed stream chunks", fields...)
}

func (r *Relay) writeFailure(dst io.Writer, readErr error, opts Options) error {
	if _, err := dst.Write(ErrorFrame(readErr, opts.Debug)); err != nil {
		return err
	}
	if _, err := dst.Write(DoneFrame()); err != nil {
		return err
	}
	flush(dst)
	return nil
}

// Frame wraps payload in the `data: <payload>\n\n` wire format.
func Frame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+8)
	out = append(out, "data: "...)
	out = append(out, payload...)
	return append(out, '\n', '\n')
}

// DoneFrame is the terminal frame of every stream.
func DoneFrame() []byte {
	return Frame([]byte(models.DoneMarker))
}

// ErrorFrame builds the in-band event that replaces a failed upstream read.
func ErrorFrame(readErr error, debug bool) []byte {
	event := models.StreamErrorEvent{
		Error:  models.MsgStreamErrorPrefix + readErr.Error(),
		Answer: models.MsgStreamRetryAnswer,
	}
	if debug {
		event.Debug = map[string]any{
			"error_time":    time.Now().UnixMilli(),
			"error_message": readErr.Error(),
		}
	}
	payload, err := json.Marshal(event)
	if err != nil {
		payload = []byte(`{"error":"` + models.MsgStreamErrorPrefix + `","answer":"` + models.MsgStreamRetryAnswer + `"}`)
	}
	return Frame(payload)
}

func flush(w io.Writer) {
	if f, ok := w.(Flusher); ok {
		f.Flush()
	}
}
