package helpers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bizmatters/design-research-gateway/internal/models"
)

// RecordedRun is one request received by FakeUpstream.
type RecordedRun struct {
	Authorization string
	Body          models.WorkflowRunRequest
}

// FakeUpstream emulates the workflow API's /workflows/run endpoint.
type FakeUpstream struct {
	Server *httptest.Server

	mu           sync.Mutex
	status       int
	errorBody    string
	blockingBody string
	frames       []string
	runs         []RecordedRun
}

// NewFakeUpstream starts a fake upstream that answers successfully with
// DefaultBlockingBody and DefaultFrames until told otherwise.
func NewFakeUpstream(t *testing.T) *FakeUpstream {
	t.Helper()
	f := &FakeUpstream{
		status:       http.StatusOK,
		blockingBody: DefaultBlockingBody,
		frames:       DefaultFrames,
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL to configure as the upstream, without /workflows/run.
func (f *FakeUpstream) URL() string {
	return f.Server.URL + "/v1"
}

// FailWith makes every following request answer status with body.
func (f *FakeUpstream) FailWith(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.errorBody = body
}

// SetFrames replaces the streaming payloads. Each entry becomes one
// `data: <payload>` event.
func (f *FakeUpstream) SetFrames(frames ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = frames
}

// Runs returns the requests received so far.
func (f *FakeUpstream) Runs() []RecordedRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRun(nil), f.runs...)
}

func (f *FakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/v1/workflows/run" {
		http.NotFound(w, r)
		return
	}

	var body models.WorkflowRunRequest
	raw, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.runs = append(f.runs, RecordedRun{Authorization: r.Header.Get("Authorization"), Body: body})
	status, errorBody, blockingBody := f.status, f.errorBody, f.blockingBody
	frames := append([]string(nil), f.frames...)
	f.mu.Unlock()

	if status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, errorBody)
		return
	}

	if body.ResponseMode != models.ResponseModeStreaming {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, blockingBody)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	for _, frame := range frames {
		io.WriteString(w, "data: "+frame+"\n\n")
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// StreamBody renders frames the way FakeUpstream sends them.
func StreamBody(frames ...string) string {
	var b strings.Builder
	for _, frame := range frames {
		b.WriteString("data: " + frame + "\n\n")
	}
	return b.String()
}
