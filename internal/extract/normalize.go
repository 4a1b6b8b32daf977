package extract

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	tagPattern          = regexp.MustCompile(`<[^>]*>?`)
	blankRunPattern     = regexp.MustCompile(`\n{3,}`)
	spaceRunPattern     = regexp.MustCompile(`[ \t]{2,}`)
	taskObjectPattern   = regexp.MustCompile(`\{\s*"task_id":[^}]+\}`)
	idPairPattern       = regexp.MustCompile(`"(id|task_id|workflow_run_id|workflow_id)":\s*"[^"]+"`)
	openingFieldPattern = regexp.MustCompile(`"(status|outputs|data)":\s*\{`)
)

// Normalized pairs the cleaned text with the input it came from.
type Normalized struct {
	Text     string
	Original string
}

// Normalize cleans extracted text for display and export. The cleaning pass
// is repeated until the text stops changing, so the result is a fixed point.
func Normalize(text string) Normalized {
	out := text
	for {
		next := normalizeOnce(out)
		if next == out {
			break
		}
		out = next
	}
	return Normalized{Text: out, Original: text}
}

func normalizeOnce(text string) string {
	text = tagPattern.ReplaceAllString(text, "")
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	text = spaceRunPattern.ReplaceAllString(text, " ")
	text = taskObjectPattern.ReplaceAllString(text, "")
	text = idPairPattern.ReplaceAllString(text, "")
	text = openingFieldPattern.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// Unwrap handles answers that are themselves a serialized JSON document by
// taking the first populated output, content, text or data.outputs.output
// field. Other answers are returned unchanged.
func Unwrap(answer string) string {
	trimmed := strings.TrimSpace(answer)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return answer
	}
	if !gjson.Valid(trimmed) {
		return answer
	}
	root := gjson.Parse(trimmed)
	for _, path := range []string{"output", "content", "text", "data.outputs.output"} {
		if v := root.Get(path); truthy(v) {
			return render(v)
		}
	}
	return answer
}
