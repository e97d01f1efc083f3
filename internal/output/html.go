package output

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlTextLimit caps the extracted page text.
const htmlTextLimit = 300

// looksLikeHTML reports whether a non-JSON body is worth parsing as a page.
func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "text/html") {
		return true
	}
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<!DOCTYPE") ||
		strings.HasPrefix(trimmed, "<!doctype") ||
		strings.HasPrefix(trimmed, "<html")
}

// summarizeHTML pulls the title and visible text out of an error page.
func summarizeHTML(body string) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", "", err
	}

	doc.Find("script, style, noscript").Remove()

	title = collapseSpace(doc.Find("title").First().Text())
	text = collapseSpace(doc.Find("body").Text())
	if runes := []rune(text); len(runes) > htmlTextLimit {
		text = string(runes[:htmlTextLimit]) + "..."
	}
	return title, text, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
