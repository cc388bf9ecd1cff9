package models

import "time"

// UnknownRecipient is used when no recipient could be resolved
const UnknownRecipient = "unknown"

// RawMessage holds the already-parsed fields of an inbound email
type RawMessage struct {
	EnvelopeTo string
	Subject    string
	PlainText  string
	HTML       string
}

// Category is the kind of Netflix verification email
type Category string

const (
	CategoryLoginCode       Category = "LoginCode"
	CategoryHouseholdUpdate Category = "HouseholdUpdate"
	CategoryHouseholdCode   Category = "HouseholdCode"
)

// Label returns the human readable name shown to operators
func (c Category) Label() string {
	switch c {
	case CategoryHouseholdUpdate:
		return "Actualización Hogar"
	case CategoryHouseholdCode:
		return "Código Hogar"
	default:
		return "Inicio de Sesión"
	}
}

// PayloadKind tells whether a payload is a link or a numeric code
type PayloadKind string

const (
	KindURL  PayloadKind = "url"
	KindCode PayloadKind = "code"
)

// ExtractionResult is a code or link attributed to its original recipient
type ExtractionResult struct {
	Recipient     string      `json:"recipient"`
	Payload       string      `json:"payload"`
	Kind          PayloadKind `json:"kind"`
	Category      Category    `json:"category"`
	ObservedAt    time.Time   `json:"observedAt"`
	SourceAccount string      `json:"sourceAccount"` // Mailbox that received the message
}
