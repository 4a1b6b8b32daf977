// Package extract pulls a human-readable answer out of workflow responses
// whose JSON shape is not under our control, and cleans it for display.
package extract

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// Extraction paths reported in Result.Path.
const (
	PathRecursive = "recursive"
	PathFallback  = "fallback"
)

// Policy configures the recursive search step.
type Policy struct {
	// MinLength is the exclusive lower bound, in characters, for a string
	// found by recursive search.
	MinLength int
	// MaxDepth is the deepest nesting level inspected; the root is depth 0.
	MaxDepth int
	// Fields are checked in order on every object visited.
	Fields []string
}

// DefaultPolicy returns the thresholds tuned against the research workflow.
func DefaultPolicy() Policy {
	return Policy{
		MinLength: 50,
		MaxDepth:  5,
		Fields:    []string{"output", "answer", "content", "text", "result", "message", "response"},
	}
}

// Matcher inspects a parsed response and reports the value it recognises.
type Matcher struct {
	Name  string
	Match func(root gjson.Result) (gjson.Result, bool)
}

// Result is the outcome of Extract. Found is false when the fallback was used.
type Result struct {
	Answer string
	Path   string
	Found  bool
}

// Extractor evaluates matchers in priority order; the first match wins.
type Extractor struct {
	policy   Policy
	matchers []Matcher
}

// New creates an extractor with the standard matcher chain.
func New(policy Policy) *Extractor {
	e := &Extractor{policy: policy}
	e.matchers = []Matcher{
		{Name: "data.outputs.output", Match: pathMatcher("data.outputs.output")},
		{Name: "outputs.output", Match: pathMatcher("outputs.output")},
		{Name: "data.status=succeeded", Match: func(root gjson.Result) (gjson.Result, bool) {
			if root.Get("data.status").String() != "succeeded" {
				return gjson.Result{}, false
			}
			v := root.Get("data.outputs.output")
			return v, truthy(v)
		}},
		{Name: "output", Match: func(root gjson.Result) (gjson.Result, bool) {
			v := root.Get("output")
			return v, v.Type == gjson.String && v.Str != ""
		}},
		{Name: "answer", Match: pathMatcher("answer")},
		{Name: PathRecursive, Match: func(root gjson.Result) (gjson.Result, bool) {
			return e.search(root, 0)
		}},
	}
	return e
}

// Matchers returns the matcher chain in evaluation order.
func (e *Extractor) Matchers() []Matcher {
	return e.matchers
}

// Extract never fails: unrecognised payloads degrade to pretty-printed JSON.
func (e *Extractor) Extract(raw []byte) Result {
	if !gjson.ValidBytes(raw) {
		return Result{Answer: string(raw), Path: PathFallback}
	}
	root := gjson.ParseBytes(raw)

	for _, m := range e.matchers {
		if v, ok := m.Match(root); ok {
			return Result{Answer: render(v), Path: m.Name, Found: true}
		}
	}

	target := root
	if data := root.Get("data"); hasContent(data) {
		target = data
	}
	return Result{Answer: prettyJSON(target.Raw), Path: PathFallback}
}

// search walks objects and arrays depth-first in document order.
func (e *Extractor) search(node gjson.Result, depth int) (gjson.Result, bool) {
	if depth > e.policy.MaxDepth || !(node.IsObject() || node.IsArray()) {
		return gjson.Result{}, false
	}

	if node.IsObject() {
		fields := make(map[string]gjson.Result)
		node.ForEach(func(key, value gjson.Result) bool {
			fields[key.String()] = value
			return true
		})
		for _, name := range e.policy.Fields {
			v, ok := fields[name]
			if ok && v.Type == gjson.String && utf8.RuneCountInString(v.Str) > e.policy.MinLength {
				return v, true
			}
		}
	}

	var found gjson.Result
	hit := false
	node.ForEach(func(_, value gjson.Result) bool {
		if !(value.IsObject() || value.IsArray()) {
			return true
		}
		found, hit = e.search(value, depth+1)
		return !hit
	})
	return found, hit
}

// ExtractChunk applies the reduced per-frame priority list used while
// streaming. ok is false when payload is not valid JSON.
func ExtractChunk(payload string) (content string, ok bool) {
	if !gjson.Valid(payload) {
		return "", false
	}
	root := gjson.Parse(payload)
	if root.Type == gjson.String {
		return root.Str, true
	}
	for _, field := range []string{"answer", "output", "content", "text", "message"} {
		if v := root.Get(field); truthy(v) {
			return render(v), true
		}
	}
	return "", true
}

func pathMatcher(path string) func(gjson.Result) (gjson.Result, bool) {
	return func(root gjson.Result) (gjson.Result, bool) {
		v := root.Get(path)
		return v, truthy(v)
	}
}

// truthy mirrors the loose truthiness the upstream's web client relied on.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}

func render(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	return v.Raw
}

func hasContent(v gjson.Result) bool {
	switch {
	case v.IsObject(), v.IsArray():
		n := 0
		v.ForEach(func(_, _ gjson.Result) bool {
			n++
			return false
		})
		return n > 0
	case v.Type == gjson.String:
		return v.Str != ""
	default:
		return false
	}
}

func prettyJSON(raw string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}
