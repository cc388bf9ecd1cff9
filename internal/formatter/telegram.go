package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// TelegramFormatter formats extraction results for Telegram
type TelegramFormatter struct {
	location *time.Location
	maxItems int
}

// NewTelegramFormatter creates a new Telegram formatter. Times are shown in loc,
// UTC when nil.
func NewTelegramFormatter(loc *time.Location) *TelegramFormatter {
	if loc == nil {
		loc = time.UTC
	}
	return &TelegramFormatter{
		location: loc,
		maxItems: 20,
	}
}

// FormatResult formats a single result
func (f *TelegramFormatter) FormatResult(r *models.ExtractionResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("<b>%s</b>\n", f.escapeHTML(r.Category.Label())))
	sb.WriteString(fmt.Sprintf("<b>Para:</b> %s\n", f.escapeHTML(r.Recipient)))

	switch r.Kind {
	case models.KindURL:
		sb.WriteString(fmt.Sprintf("<b>Enlace:</b> <a href=\"%s\">abrir</a>\n", f.escapeHTML(r.Payload)))
	default:
		sb.WriteString(fmt.Sprintf("<b>Código:</b> <code>%s</code>\n", f.escapeHTML(r.Payload)))
	}

	sb.WriteString(fmt.Sprintf("<b>Hora:</b> %s", r.ObservedAt.In(f.location).Format("02.01.2006 15:04:05")))
	if r.SourceAccount != "" && !strings.EqualFold(r.SourceAccount, r.Recipient) {
		sb.WriteString(fmt.Sprintf("\n<b>Buzón:</b> %s", f.escapeHTML(r.SourceAccount)))
	}

	return sb.String()
}

// FormatList formats the latest result of every recipient, newest first
func (f *TelegramFormatter) FormatList(results []*models.ExtractionResult) string {
	if len(results) == 0 {
		return "Sin códigos todavía."
	}

	var sb strings.Builder
	sb.WriteString("<b>Últimos códigos</b>\n")

	for i, r := range results {
		if i == f.maxItems {
			sb.WriteString(fmt.Sprintf("\n… y %d más", len(results)-f.maxItems))
			break
		}

		value := fmt.Sprintf("<code>%s</code>", f.escapeHTML(r.Payload))
		if r.Kind == models.KindURL {
			value = fmt.Sprintf("<a href=\"%s\">enlace</a>", f.escapeHTML(r.Payload))
		}
		sb.WriteString(fmt.Sprintf("\n%s · %s · %s (%s)",
			f.escapeHTML(r.Recipient),
			f.escapeHTML(r.Category.Label()),
			value,
			r.ObservedAt.In(f.location).Format("15:04"),
		))
	}

	return sb.String()
}

// escapeHTML escapes HTML special characters for Telegram
func (f *TelegramFormatter) escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
