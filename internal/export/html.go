package export

import (
	"bytes"
	"html"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// WriteHTML renders doc.Text as a standalone HTML page. Raw HTML in the
// input is not passed through.
func WriteHTML(w io.Writer, doc Document) error {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(doc.Text), &body); err != nil {
		return err
	}

	title := html.EscapeString(doc.Title)
	if title == "" {
		title = DefaultTitle
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"zh-CN\">\n<head>\n<meta charset=\"utf-8\">\n<title>")
	page.WriteString(title)
	page.WriteString("</title>\n</head>\n<body>\n")
	if doc.Header {
		page.WriteString("<h1 class=\"title\">" + title + "</h1>\n")
		page.WriteString("<p class=\"date\">" + html.EscapeString(dateLine(doc.Date)) + "</p>\n")
	}
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")

	_, err := w.Write(page.Bytes())
	return err
}
