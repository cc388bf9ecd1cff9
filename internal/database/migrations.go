package database

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    address TEXT PRIMARY KEY,
    password TEXT NOT NULL,
    host TEXT NOT NULL,
    port INTEGER NOT NULL DEFAULT 993,
    use_tls BOOLEAN NOT NULL DEFAULT true,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    mode TEXT NOT NULL DEFAULT 'imap',
    mailgun_signing_key TEXT NOT NULL DEFAULT '',
    monitored_email TEXT NOT NULL DEFAULT ''
);
`

const seedSettings = `
INSERT OR IGNORE INTO settings (id, mode, mailgun_signing_key, monitored_email)
VALUES (1, ?, ?, ?);
`
