package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Format is a supported export target.
type Format string

const (
	FormatText Format = "txt"
	FormatDocx Format = "docx"
	FormatHTML Format = "html"
)

// DefaultTitle names documents exported without a title.
const DefaultTitle = "研究报告"

// ErrUnsupportedFormat is returned for formats other than txt, docx and html.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Document is the input to an export.
type Document struct {
	Title string
	Text  string
	// Header prepends the title and generation date (docx and html only).
	Header bool
	Date   time.Time
}

// File is a rendered attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ParseFormat maps a request value to a Format. Empty means txt.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatDocx:
		return FormatDocx, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Render produces the attachment for doc in the given format.
func Render(format Format, doc Document) (*File, error) {
	if doc.Date.IsZero() {
		doc.Date = time.Now()
	}

	var buf bytes.Buffer
	var contentType string
	switch format {
	case FormatText:
		buf.WriteString(doc.Text)
		contentType = "text/plain; charset=utf-8"
	case FormatDocx:
		if err := WriteDocx(&buf, doc); err != nil {
			return nil, fmt.Errorf("failed to render docx: %w", err)
		}
		contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatHTML:
		if err := WriteHTML(&buf, doc); err != nil {
			return nil, fmt.Errorf("failed to render html: %w", err)
		}
		contentType = "text/html; charset=utf-8"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return &File{
		Name:        FileName(doc.Title, format),
		ContentType: contentType,
		Data:        buf.Bytes(),
	}, nil
}

// FileName builds `<title>-结果.<ext>`, replacing path separators and
// characters that are invalid in common filesystems.
func FileName(title string, format Format) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	title = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, title)
	return fmt.Sprintf("%s-结果.%s", title, format)
}

func dateLine(t time.Time) string {
	return "生成日期: " + t.Format("2006/1/2")
}
