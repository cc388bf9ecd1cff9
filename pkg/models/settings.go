package models

// Mode selects the ingestion path
type Mode string

const (
	ModeIMAP    Mode = "imap"
	ModeMailgun Mode = "mailgun"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeIMAP || m == ModeMailgun
}

// Settings holds the runtime settings of the monitor
type Settings struct {
	Mode              Mode   `db:"mode" json:"mode"`
	MailgunSigningKey string `db:"mailgun_signing_key" json:"mailgunSigningKey"`
	MonitoredEmail    string `db:"monitored_email" json:"monitoredEmail"`
}

// DefaultSettings returns the settings used before anything is persisted
func DefaultSettings() Settings {
	return Settings{Mode: ModeIMAP}
}
