package reporting

import (
	"bytes"
	"fmt"
	stdhtml "html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

const htmlHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2em auto; max-width: 1200px; color: #222; }
table { border-collapse: collapse; margin: 1em 0; font-size: 0.9em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: right; }
th { background: #f3f3f3; }
td:first-child, th:first-child { text-align: left; }
code { background: #f6f8fa; padding: 1px 4px; }
</style>
</head>
<body>
`

const htmlTail = "</body>\n</html>\n"

// RenderHTML converts the Markdown report into a standalone HTML page.
func RenderHTML(title, markdown string) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf(htmlHead, stdhtml.EscapeString(title)))
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	buf.WriteString(htmlTail)
	return buf.Bytes(), nil
}
