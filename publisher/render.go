package publisher

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var mdRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts a finished post to an HTML fragment. The frontmatter
// title becomes the heading and the pipeline review comment is dropped.
func RenderHTML(md string) (string, error) {
	fm, body, err := SplitFrontmatter(md)
	if err != nil {
		return "", err
	}
	body = stripReviewComment(body)

	var buf bytes.Buffer
	if fm.Title != "" {
		buf.WriteString("<h1>")
		buf.WriteString(html.EscapeString(fm.Title))
		buf.WriteString("</h1>\n")
	}
	if err := mdRenderer.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// stripReviewComment removes the first "Pipeline Review" comment block.
func stripReviewComment(body string) string {
	start := strings.Index(body, "<!--")
	if start < 0 || !strings.HasPrefix(strings.TrimSpace(body[start+4:]), "Pipeline Review:") {
		return body
	}
	end := strings.Index(body[start:], "-->")
	if end < 0 {
		return body
	}
	return body[:start] + strings.TrimLeft(body[start+end+3:], "\n")
}
