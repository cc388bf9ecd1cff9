package models

import (
	"fmt"
	"time"
)

// MonitoredAccount represents an IMAP mailbox watched for verification emails
type MonitoredAccount struct {
	Address   string    `db:"address" json:"user"`
	Password  string    `db:"password" json:"-"` // Encrypted when ENCRYPTION_KEY is set
	Host      string    `db:"host" json:"host"`  // e.g., imap.gmail.com
	Port      int       `db:"port" json:"port"`  // e.g., 993
	UseTLS    bool      `db:"use_tls" json:"secure"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Server returns the host:port pair used to dial the mailbox
func (a *MonitoredAccount) Server() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}
