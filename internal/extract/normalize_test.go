package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips_tags_keeps_inner_text",
			input:    "<p>设计<b>研究</b></p>",
			expected: "设计研究",
		},
		{
			name:     "strips_unterminated_tag",
			input:    "before <br",
			expected: "before",
		},
		{
			name:     "collapses_horizontal_whitespace",
			input:    "a  b\t\tc \t d",
			expected: "a b c d",
		},
		{
			name:     "drops_blank_lines",
			input:    "line one\n\n\n\n   \nline two\n",
			expected: "line one\nline two",
		},
		{
			name:     "removes_task_object",
			input:    `{"task_id": "abc", "x": 1} report`,
			expected: "report",
		},
		{
			name:     "removes_id_pairs",
			input:    `"workflow_run_id": "r-1" body "id": "9"`,
			expected: "body",
		},
		{
			name:     "removes_opening_fragments",
			input:    `"data": { "outputs":{ text`,
			expected: "text",
		},
		{
			name:     "trims_result",
			input:    "  \n  hello  \n\n",
			expected: "hello",
		},
		{
			name:     "empty_input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(tt.input)
			assert.Equal(t, tt.expected, n.Text)
			assert.Equal(t, tt.input, n.Original)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"<<a>b> text",
		"a \t\"id\": \"x\"\t b",
		"\"da\"id\": \"x\"ta\": { rest",
		"{\"task_id\": \"1\"}\n\n\n<h1>Title</h1>\n\n  * item  one\n",
		"<\"id\": \"x\">kept",
		"plain\n\n\ntext",
	}

	for _, in := range inputs {
		once := Normalize(in).Text
		twice := Normalize(once).Text
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain_text_unchanged", input: "just text", expected: "just text"},
		{name: "output_field", input: `{"output":"inner"}`, expected: "inner"},
		{name: "content_before_text", input: ` {"text":"t","content":"c"}`, expected: "c"},
		{name: "nested_outputs", input: `{"data":{"outputs":{"output":"deep"}}}`, expected: "deep"},
		{name: "no_known_field", input: `{"foo":"bar"}`, expected: `{"foo":"bar"}`},
		{name: "invalid_json_unchanged", input: `{not json`, expected: `{not json`},
		{name: "array_unchanged", input: `[1,2]`, expected: `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Unwrap(tt.input))
		})
	}
}
