package email

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// IMAP servers of the providers monitored inboxes usually live on
var knownIMAPServers = map[string]string{
	"gmail.com":      "imap.gmail.com:993",
	"googlemail.com": "imap.gmail.com:993",
	"outlook.com":    "outlook.office365.com:993",
	"outlook.es":     "outlook.office365.com:993",
	"hotmail.com":    "outlook.office365.com:993",
	"hotmail.es":     "outlook.office365.com:993",
	"live.com":       "outlook.office365.com:993",
	"live.com.mx":    "outlook.office365.com:993",
	"yahoo.com":      "imap.mail.yahoo.com:993",
	"yahoo.es":       "imap.mail.yahoo.com:993",
	"yahoo.com.mx":   "imap.mail.yahoo.com:993",
	"yahoo.com.ar":   "imap.mail.yahoo.com:993",
	"icloud.com":     "imap.mail.me.com:993",
	"me.com":         "imap.mail.me.com:993",
	"aol.com":        "imap.aol.com:993",
	"zoho.com":       "imap.zoho.com:993",
	"proton.me":      "127.0.0.1:1143", // Proton Mail Bridge
	"protonmail.com": "127.0.0.1:1143",
	"gmx.com":        "imap.gmx.com:993",
	"gmx.es":         "imap.gmx.com:993",
}

// DefaultIMAPPort is the implicit TLS IMAP port
const DefaultIMAPPort = 993

// ResolveIMAPServer determines the IMAP host for an email address. Providers
// known to be reachable only through a local bridge also get their port.
func ResolveIMAPServer(email string) (string, int, error) {
	domain := GetDomainFromEmail(email)
	if domain == "" {
		return "", 0, fmt.Errorf("invalid email format: %q", email)
	}

	// Check known providers first
	if server, ok := knownIMAPServers[domain]; ok {
		return splitServer(server)
	}

	// Try common IMAP server patterns
	for _, host := range []string{"imap." + domain, "mail." + domain, domain} {
		if checkIMAPServer(host, DefaultIMAPPort) {
			return host, DefaultIMAPPort, nil
		}
	}

	// Try to resolve via MX records
	if host, err := resolveViaMX(domain); err == nil && host != "" {
		return host, DefaultIMAPPort, nil
	}

	// Default fallback
	return "imap." + domain, DefaultIMAPPort, nil
}

func splitServer(server string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(server)
	if err != nil {
		return "", 0, fmt.Errorf("invalid server %q: %w", server, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", server, err)
	}
	return host, port, nil
}

// checkIMAPServer checks if an IMAP server is reachable
func checkIMAPServer(host string, port int) bool {
	address := fmt.Sprintf("%s:%d", host, port)
	conn, err := net.DialTimeout("tcp", address, 3*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// resolveViaMX tries to determine IMAP server from MX records
func resolveViaMX(domain string) (string, error) {
	mxRecords, err := net.LookupMX(domain)
	if err != nil || len(mxRecords) == 0 {
		return "", fmt.Errorf("no MX records found")
	}

	// Get the primary MX record
	mxHost := strings.TrimSuffix(mxRecords[0].Host, ".")

	// Try to derive IMAP server from MX host
	// e.g., mx.example.com -> imap.example.com
	parts := strings.SplitN(mxHost, ".", 2)
	if len(parts) == 2 {
		baseDomain := parts[1]
		imapHost := "imap." + baseDomain
		if checkIMAPServer(imapHost, DefaultIMAPPort) {
			return imapHost, nil
		}

		// Try mail.domain
		mailHost := "mail." + baseDomain
		if checkIMAPServer(mailHost, DefaultIMAPPort) {
			return mailHost, nil
		}
	}

	return "", fmt.Errorf("could not determine IMAP server")
}

// GetDomainFromEmail extracts domain from email address
func GetDomainFromEmail(email string) string {
	parts := strings.Split(strings.TrimSpace(email), "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return strings.ToLower(parts[1])
}
