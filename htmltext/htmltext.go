// CLAUDE:SUMMARY HTML body reduction: sanitize, convert to markdown, fall back to plain text extraction.
// Package htmltext turns HTML message bodies into markdown suitable for
// chunking. Input is sanitized first, then converted; when conversion
// produces nothing useful the raw text content of the document is
// collected instead.
package htmltext

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Reducer converts HTML to markdown. Safe for concurrent use.
type Reducer struct {
	policy *bluemonday.Policy
	md     *converter.Converter
}

// NewReducer builds a Reducer with the UGC sanitization policy. The cid
// scheme is kept so inline image references survive into the markdown.
func NewReducer() *Reducer {
	policy := bluemonday.UGCPolicy()
	policy.AllowURLSchemes("cid", "http", "https", "mailto")
	return &Reducer{
		policy: policy,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Reduce sanitizes src and converts it to markdown. An empty conversion
// falls back to collecting the document's text nodes; only a document with
// no text at all yields an empty result.
func (r *Reducer) Reduce(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	clean := r.policy.Sanitize(src)
	md, err := r.md.ConvertString(clean)
	if err == nil {
		md = normalize(md)
		if md != "" {
			return md, nil
		}
	}
	text, textErr := PlainText(src)
	if textErr != nil {
		if err != nil {
			return "", fmt.Errorf("convert html: %w", err)
		}
		return "", fmt.Errorf("collect text: %w", textErr)
	}
	return normalize(text), nil
}

// skipElements are containers whose text nodes are not content.
var skipElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
	"title":  true,
}

// PlainText collects the visible text nodes of an HTML document, joining
// them with single spaces inside a line and newlines across block elements.
func PlainText(src string) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var b strings.Builder
	collect(doc, &b)
	return b.String(), nil
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "table": true,
}

func collect(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && skipElements[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, b)
	}
	if n.Type == html.ElementNode && blockElements[n.Data] && b.Len() > 0 {
		b.WriteByte('\n')
	}
}

// cidPattern matches markdown link/image destinations using the cid scheme.
var cidPattern = regexp.MustCompile(`\]\(cid:([^)\s]+)\)`)

// CidRef is a content-id reference found in reduced markdown. Offset is the
// rune position of the opening bracket of the destination within the text.
type CidRef struct {
	ContentID string
	Offset    int
}

// CidRefs scans markdown for cid: destinations and returns them in document
// order with rune offsets.
func CidRefs(markdown string) []CidRef {
	matches := cidPattern.FindAllStringSubmatchIndex(markdown, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]CidRef, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, CidRef{
			ContentID: markdown[m[2]:m[3]],
			Offset:    utf8.RuneCountInString(markdown[:m[0]]),
		})
	}
	return refs
}

// normalize collapses runs of blank lines and trims trailing whitespace
// per line, so chunking sees stable paragraph boundaries.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
