package htmlutil

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Headline is the title and link read from one matched element.
type Headline struct {
	Title string
	Link  string
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CompileSelector reports whether selector is a valid CSS selector.
func CompileSelector(selector string) error {
	if _, err := cascadia.Compile(selector); err != nil {
		return fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return nil
}

// Parse loads an HTML document. Malformed markup is repaired by the parser, not rejected.
func Parse(body string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

// CleanText strips non-printable runes and collapses runs of whitespace.
func CleanText(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch {
		case unicode.IsSpace(c):
			b.WriteRune(' ')
		case unicode.IsPrint(c):
			b.WriteRune(c)
		}
	}
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(b.String(), " "))
}

// ResolveLink makes href absolute against base. Unparseable hrefs are returned trimmed but unchanged.
func ResolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// ExtractHeadlines returns one Headline per element matching selector, in document order.
// The title is the element's text, the link is the href of its immediate parent.
func ExtractHeadlines(doc *goquery.Document, selector string, base *url.URL) []Headline {
	headlines := []Headline{}
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Parent().Attr("href")
		headlines = append(headlines, Headline{
			Title: CleanText(s.Text()),
			Link:  ResolveLink(base, href),
		})
	})
	return headlines
}
