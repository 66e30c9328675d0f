package toolimpl

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ExtractCaptureText strips markup from a browser or browser_research
// capture payload, leaving plain prose doc_parse can treat the same as a
// direct file read. Adapted from the research collaborator's
// htmlToMarkdown/extractText walk, trimmed to plain text: captures don't
// need link/heading markdown, just the readable text a summarizer and
// extractor can work over.
func ExtractCaptureText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	extractCaptureText(doc, &sb, 0)
	return cleanCaptureText(sb.String()), nil
}

func extractCaptureText(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 50 {
		return
	}

	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "header":
			return
		case "br", "p", "div", "li":
			sb.WriteString("\n")
		case "img":
			if alt := getCaptureAttr(n, "alt"); alt != "" {
				sb.WriteString(alt)
				sb.WriteString(" ")
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractCaptureText(c, sb, depth+1)
	}
}

func getCaptureAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

var captureWhitespace = regexp.MustCompile(`[ \t]{2,}`)
var captureNewlines = regexp.MustCompile(`\n{3,}`)

func cleanCaptureText(s string) string {
	s = captureWhitespace.ReplaceAllString(s, " ")
	s = captureNewlines.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
