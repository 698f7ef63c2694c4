package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SummaryLimit is the maximum summary length in characters.
const SummaryLimit = 300

const ellipsis = "…"

// placeholderRe matches newsletter template variables such as {{ first_name | default }}.
var placeholderRe = regexp.MustCompile(`\{\{.*?\}\}`)

// parseHTML parses an HTML fragment. A nil document means there is nothing to read.
func parseHTML(raw string) *goquery.Document {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil
	}
	return doc
}

// CleanText turns an HTML fragment into a single line of plain text.
func CleanText(raw string) string {
	return textOf(parseHTML(raw))
}

func textOf(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}

	var parts []string
	collectText(doc.Selection, &parts)

	text := placeholderRe.ReplaceAllString(strings.Join(parts, " "), "")
	return strings.Join(strings.Fields(text), " ")
}

func collectText(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "#text":
			*parts = append(*parts, s.Text())
		case "#comment", "script", "style", "template":
		default:
			collectText(s, parts)
		}
	})
}

// bodyImage returns the first <img> src that does not look like a tracking pixel.
func bodyImage(doc *goquery.Document) (string, bool) {
	if doc == nil {
		return "", false
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, ok := img.Attr("src")
		src = strings.TrimSpace(src)
		if !ok || src == "" || isTrackingPixel(src) {
			return true
		}
		found = src
		return false
	})
	return found, found != ""
}

func isTrackingPixel(src string) bool {
	return strings.Contains(src, "pixel") || strings.Contains(src, "track")
}

// Truncate shortens text to at most limit characters, cutting at the last word boundary and
// appending an ellipsis. Text within the limit is returned unchanged.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= 1 {
		return ellipsis
	}

	head := runes[:limit]
	cut := -1
	for i := len(head) - 1; i > 0; i-- {
		if head[i] == ' ' {
			cut = i
			break
		}
	}
	if cut < 0 {
		// one word longer than the limit
		cut = limit - 1
	}
	return string(runes[:cut]) + ellipsis
}
