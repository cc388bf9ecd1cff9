package parser

import (
	"strings"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// Classify assigns a category from keywords in the subject and bodies.
// Update keywords take precedence over household keywords.
func Classify(subject, text, html string) models.Category {
	content := strings.ToLower(subject + " " + text + " " + html)

	switch {
	case strings.Contains(content, "actuali") || strings.Contains(content, "update"):
		return models.CategoryHouseholdUpdate
	case strings.Contains(content, "hogar") || strings.Contains(content, "household"):
		return models.CategoryHouseholdCode
	default:
		return models.CategoryLoginCode
	}
}
