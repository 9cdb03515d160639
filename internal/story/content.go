package story

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips the rich-HTML markup from story content, collapsing
// whitespace to single spaces.
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// Excerpt returns the first max runes of the plain-text content, with an
// ellipsis when truncated. Malformed HTML degrades to an empty excerpt.
func Excerpt(html string, max int) string {
	text, err := PlainText(html)
	if err != nil {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimRight(string(runes[:max]), " ") + "..."
}
