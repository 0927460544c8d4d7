package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const summaryLimit = 160

// summarizeBody condenses an unexpected response body for the debug log.
// HTML error pages are reduced to their title, or their visible text.
func summarizeBody(contentType, body string) string {
	if strings.Contains(strings.ToLower(contentType), "html") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err == nil {
			if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
				return truncate(title)
			}
			doc.Find("script, style").Remove()
			return truncate(strings.Join(strings.Fields(doc.Find("body").Text()), " "))
		}
	}
	return truncate(strings.Join(strings.Fields(body), " "))
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= summaryLimit {
		return s
	}
	return string(r[:summaryLimit]) + "..."
}
