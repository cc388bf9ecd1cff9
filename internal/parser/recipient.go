package parser

import (
	"regexp"
	"strings"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// forwardedToRegex matches the recipient line a mail client leaves in a forwarded body
var forwardedToRegex = regexp.MustCompile(`(?i)(?:To|Para|Enviado a):\s*([a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+\.[a-zA-Z0-9._-]+)`)

// ResolveRecipient determines the address a message was originally sent to.
//
// The envelope recipient is the starting point. A forwarding line found in the
// body text always wins, even when it names the monitored mailbox itself: a
// result equal to monitored is returned as is, there is no other source to
// consult.
func ResolveRecipient(envelopeTo, bodyText, monitored string) string {
	recipient := strings.TrimSpace(envelopeTo)
	if recipient == "" {
		recipient = models.UnknownRecipient
	}

	if match := forwardedToRegex.FindStringSubmatch(bodyText); match != nil {
		recipient = match[1]
	}

	return recipient
}
