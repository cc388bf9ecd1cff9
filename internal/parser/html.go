package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// findAnchorLink parses the document and returns the first anchor href
// matching target. Attribute values come back entity-decoded.
func findAnchorLink(htmlBody string, target *regexp.Regexp) string {
	if !strings.Contains(strings.ToLower(htmlBody), "netflix.com") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return ""
	}

	var link string
	doc.Find("a[href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if target.MatchString(href) {
			link = href
			return false
		}
		return true
	})

	return link
}
