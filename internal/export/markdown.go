// Package export renders research text as downloadable documents.
package export

import (
	"regexp"
	"strings"
)

// BlockKind is the structural role of one exported line.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockBullet
	BlockNumbered
	BlockCode
)

// MaxHeadingLevel caps `######` and deeper to the last heading style.
const MaxHeadingLevel = 5

// Run is a span of text sharing one style.
type Run struct {
	Text string
	Bold bool
}

// Block is one non-blank input line.
type Block struct {
	Kind  BlockKind
	Level int // heading level, 1..MaxHeadingLevel
	Runs  []Run
}

var (
	headingPattern  = regexp.MustCompile(`^(#+)\s+`)
	bulletPattern   = regexp.MustCompile(`^[-*]\s+`)
	numberedPattern = regexp.MustCompile(`^\d+\.\s+`)
	boldPattern     = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

const codeFence = "```"

// Parse splits text into blocks, one per non-blank line. Fence lines are
// dropped and the lines between them become BlockCode verbatim.
func Parse(text string) []Block {
	var blocks []Block
	inCodeBlock := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, codeFence) {
			inCodeBlock = !inCodeBlock
			continue
		}
		if trimmed == "" {
			continue
		}
		if inCodeBlock {
			blocks = append(blocks, Block{Kind: BlockCode, Runs: []Run{{Text: strings.TrimRight(line, " \t\r")}}})
			continue
		}
		blocks = append(blocks, parseLine(trimmed))
	}
	return blocks
}

func parseLine(line string) Block {
	if m := headingPattern.FindStringSubmatch(line); m != nil {
		level := len(m[1])
		if level > MaxHeadingLevel {
			level = MaxHeadingLevel
		}
		return Block{Kind: BlockHeading, Level: level, Runs: parseRuns(line[len(m[0]):])}
	}
	if loc := bulletPattern.FindStringIndex(line); loc != nil {
		return Block{Kind: BlockBullet, Runs: parseRuns(line[loc[1]:])}
	}
	if loc := numberedPattern.FindStringIndex(line); loc != nil {
		return Block{Kind: BlockNumbered, Runs: parseRuns(line[loc[1]:])}
	}
	return Block{Kind: BlockParagraph, Runs: parseRuns(line)}
}

// parseRuns splits **bold** spans out of s. Unpaired markers stay literal.
func parseRuns(s string) []Run {
	var runs []Run
	last := 0
	for _, m := range boldPattern.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > last {
			runs = append(runs, Run{Text: s[last:m[0]]})
		}
		runs = append(runs, Run{Text: s[m[2]:m[3]], Bold: true})
		last = m[1]
	}
	if last < len(s) {
		runs = append(runs, Run{Text: s[last:]})
	}
	return runs
}

// PlainText joins the runs of b without markup.
func (b Block) PlainText() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}
