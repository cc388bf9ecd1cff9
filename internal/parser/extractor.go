package parser

import (
	"html"
	"regexp"
	"strings"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// Extraction is a payload found in a message body
type Extraction struct {
	Kind  models.PayloadKind
	Value string
}

// Extractor finds household verification links and 4-digit codes
type Extractor struct {
	linkRegex         *regexp.Regexp
	linkTargetRegex   *regexp.Regexp
	tagRegex          *regexp.Regexp
	invisibleRegex    *regexp.Regexp
	whitespaceRegex   *regexp.Regexp
	spacedDigitsRegex *regexp.Regexp
	digitRunRegex     *regexp.Regexp
}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{
		linkRegex:       regexp.MustCompile(`(?i)href\s*=\s*["'](https://[^"'\s<>]*netflix\.com/account/(?:travel|update-household|household|update-primary-location)/[^"'\s<>]*)["']`),
		linkTargetRegex: regexp.MustCompile(`(?i)^https://[^"'\s<>]*netflix\.com/account/(?:travel|update-household|household|update-primary-location)/`),
		tagRegex:        regexp.MustCompile(`<[^>]*>`),
		// Zero-width and other invisible characters used in mail templates
		invisibleRegex:    regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x{00AD}\x{034F}\x{061C}\x{2060}-\x{2064}]+`),
		whitespaceRegex:   regexp.MustCompile(`[\s\p{Z}]+`),
		spacedDigitsRegex: regexp.MustCompile(`\b(\d)\s+(\d)\s+(\d)\s+(\d)\b`),
		digitRunRegex:     regexp.MustCompile(`\d+`),
	}
}

// Extract returns the verification link or code found in the message, or nil.
//
// A household link in the HTML always wins so that digits in profile names
// are never reported as codes. Otherwise the text body is searched before the
// HTML body.
func (e *Extractor) Extract(text, htmlBody string) *Extraction {
	if link := e.findLink(htmlBody); link != "" {
		return &Extraction{Kind: models.KindURL, Value: link}
	}

	if code := e.findCode(text); code != "" {
		return &Extraction{Kind: models.KindCode, Value: code}
	}

	if htmlBody != "" {
		stripped := html.UnescapeString(e.tagRegex.ReplaceAllString(htmlBody, " "))
		if code := e.findCode(stripped); code != "" {
			return &Extraction{Kind: models.KindCode, Value: code}
		}
	}

	return nil
}

// findLink looks for a household or travel verification link in an href
func (e *Extractor) findLink(htmlBody string) string {
	if htmlBody == "" {
		return ""
	}

	if match := e.linkRegex.FindStringSubmatch(htmlBody); match != nil {
		return strings.ReplaceAll(match[1], "&amp;", "&")
	}

	// Unquoted attributes and numeric entities need a real HTML parser
	return findAnchorLink(htmlBody, e.linkTargetRegex)
}

// findCode applies the spaced-digits strategy, then the isolated 4-digit one
func (e *Extractor) findCode(text string) string {
	if text == "" {
		return ""
	}

	clean := e.invisibleRegex.ReplaceAllString(text, "")
	clean = e.whitespaceRegex.ReplaceAllString(clean, " ")

	// "8 1 9 1"
	if m := e.spacedDigitsRegex.FindStringSubmatch(clean); m != nil {
		return m[1] + m[2] + m[3] + m[4]
	}

	// "8191", skipping 2020-2029 which are almost always years
	for _, run := range e.digitRunRegex.FindAllString(clean, -1) {
		if len(run) == 4 && !strings.HasPrefix(run, "202") {
			return run
		}
	}

	return ""
}
