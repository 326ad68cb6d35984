package llm

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	leadingFence  = regexp.MustCompile("(?i)^```[a-z]*\\s*")
	trailingFence = regexp.MustCompile("\\s*```\\s*$")
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// StripCodeFences removes a leading ```lang marker and a trailing ``` marker.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// RenderHTML converts a narrative answer to HTML. Markdown is rendered;
// embedded HTML passes through untouched.
func RenderHTML(text string) (string, error) {
	text = StripCodeFences(text)
	if text == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", eris.Wrap(err, "llm: render narrative")
	}
	return strings.TrimSpace(buf.String()), nil
}

const blockSelector = "h1, h2, h3, h4, h5, h6, p, li"

// PlainText flattens narrative HTML into one line per block element for
// terminal output.
func PlainText(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", eris.Wrap(err, "llm: parse narrative html")
	}

	var lines []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("li").Length() > 0 {
			return
		}
		line := strings.Join(strings.Fields(s.Text()), " ")
		if line == "" {
			return
		}
		if goquery.NodeName(s) == "li" {
			line = "- " + line
		}
		lines = append(lines, line)
	})

	if len(lines) == 0 {
		return strings.Join(strings.Fields(doc.Text()), " "), nil
	}
	return strings.Join(lines, "\n"), nil
}
