package extract

import (
	"bytes"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrEmptyStream is returned by Finish when no frame carried any content.
var ErrEmptyStream = errors.New("未能从流式响应中获取有效内容")

const (
	framePrefix = "data:"
	doneMarker  = "[DONE]"
)

// Accumulator reassembles the text carried by a `data: <payload>` frame
// stream. Chunks may split frames, lines and multi-byte characters anywhere.
// An Accumulator is owned by a single stream and is not safe for concurrent use.
type Accumulator struct {
	pending     []byte
	text        strings.Builder
	frames      int
	parseErrors int
	done        bool
	streamError string
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Feed consumes one transport chunk. Complete lines are processed
// immediately; a trailing partial line is kept for the next chunk.
func (a *Accumulator) Feed(chunk []byte) {
	a.pending = append(a.pending, chunk...)
	for {
		idx := bytes.IndexByte(a.pending, '\n')
		if idx < 0 {
			return
		}
		line := string(a.pending[:idx])
		a.pending = a.pending[idx+1:]
		a.processLine(line)
	}
}

// Finish processes any unterminated final line and returns the normalized
// text. ErrEmptyStream is returned when nothing was accumulated.
func (a *Accumulator) Finish() (Normalized, error) {
	if len(a.pending) > 0 {
		line := string(a.pending)
		a.pending = nil
		a.processLine(line)
	}
	if a.text.Len() == 0 {
		return Normalized{}, ErrEmptyStream
	}
	return Normalize(a.text.String()), nil
}

// Text returns the raw text accumulated so far.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// Done reports whether the terminal frame was seen.
func (a *Accumulator) Done() bool {
	return a.done
}

// Frames returns the number of data frames processed, including [DONE].
func (a *Accumulator) Frames() int {
	return a.frames
}

// ParseErrors returns how many frame payloads were not valid JSON.
func (a *Accumulator) ParseErrors() int {
	return a.parseErrors
}

// StreamError returns the error message of an in-band error event, if one
// was received.
func (a *Accumulator) StreamError() string {
	return a.streamError
}

func (a *Accumulator) processLine(line string) {
	if !strings.HasPrefix(line, framePrefix) {
		return
	}
	payload := strings.TrimSpace(line[len(framePrefix):])
	a.frames++

	if payload == "" {
		return
	}
	if payload == doneMarker {
		a.done = true
		return
	}

	content, ok := ExtractChunk(payload)
	if !ok {
		// not JSON: plain-text streams carry the text directly
		a.parseErrors++
		a.text.WriteString(payload)
		return
	}
	if msg := gjson.Get(payload, "error"); msg.Type == gjson.String && msg.Str != "" {
		a.streamError = msg.Str
	}
	a.text.WriteString(content)
}
