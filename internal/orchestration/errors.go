package orchestration

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ValidationError reports a malformed invocation request. It is raised
// before any upstream call is made.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(names, ", "))
}

// UpstreamError is a non-2xx answer from the workflow API.
type UpstreamError struct {
	StatusCode int
	Code       string
	// Message is the best-effort human readable detail.
	Message string
	Body    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Dify API responded with status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the failure is on the upstream side and should
// count against the circuit breaker.
func (e *UpstreamError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}
