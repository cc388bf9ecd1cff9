package mailgun

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// ErrMissingSignature is returned when a payload carries no signature at all
var ErrMissingSignature = errors.New("missing signature")

// Signature holds the values Mailgun signs every webhook with
type Signature struct {
	Timestamp string `json:"timestamp"`
	Token     string `json:"token"`
	Signature string `json:"signature"`
}

// Empty reports whether no signature value was provided
func (s Signature) Empty() bool {
	return s.Timestamp == "" && s.Token == "" && s.Signature == ""
}

// Verify checks the signature against secretKey
func (s Signature) Verify(secretKey string) bool {
	return VerifySignature(s.Timestamp, s.Token, s.Signature, secretKey)
}

// Payload is an inbound message as posted by a Mailgun route
type Payload struct {
	Signature    Signature
	BodyPlain    string
	StrippedText string
	BodyHTML     string
	Subject      string
	Recipient    string
	Sender       string
}

// Message converts the payload into the fields the pipeline consumes
func (p *Payload) Message() models.RawMessage {
	text := p.BodyPlain
	if text == "" {
		text = p.StrippedText
	}

	return models.RawMessage{
		EnvelopeTo: p.Recipient,
		Subject:    p.Subject,
		PlainText:  text,
		HTML:       p.BodyHTML,
	}
}

// ParseForm builds a payload from form fields. Signature values may come
// flattened (signature[timestamp]) or as top-level fields.
func ParseForm(form url.Values) (*Payload, error) {
	p := &Payload{
		Signature: Signature{
			Timestamp: firstNonEmpty(form.Get("signature[timestamp]"), form.Get("timestamp")),
			Token:     firstNonEmpty(form.Get("signature[token]"), form.Get("token")),
			Signature: firstNonEmpty(form.Get("signature[signature]"), form.Get("signature")),
		},
		BodyPlain:    form.Get("body-plain"),
		StrippedText: form.Get("stripped-text"),
		BodyHTML:     form.Get("body-html"),
		Subject:      form.Get("subject"),
		Recipient:    form.Get("recipient"),
		Sender:       form.Get("sender"),
	}

	if p.Signature.Empty() {
		return p, ErrMissingSignature
	}
	return p, nil
}

// jsonPayload is the JSON form of a webhook, with a nested signature object
type jsonPayload struct {
	Signature    json.RawMessage `json:"signature"`
	Timestamp    string          `json:"timestamp"`
	Token        string          `json:"token"`
	BodyPlain    string          `json:"body-plain"`
	StrippedText string          `json:"stripped-text"`
	BodyHTML     string          `json:"body-html"`
	Subject      string          `json:"subject"`
	Recipient    string          `json:"recipient"`
	Sender       string          `json:"sender"`
}

// ParseJSON builds a payload from a JSON body. The signature may be a nested
// object or a flat string next to timestamp and token.
func ParseJSON(r io.Reader) (*Payload, error) {
	var raw jsonPayload
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	p := &Payload{
		BodyPlain:    raw.BodyPlain,
		StrippedText: raw.StrippedText,
		BodyHTML:     raw.BodyHTML,
		Subject:      raw.Subject,
		Recipient:    raw.Recipient,
		Sender:       raw.Sender,
	}

	var nested Signature
	var flat string
	switch {
	case len(raw.Signature) == 0:
	case json.Unmarshal(raw.Signature, &nested) == nil:
		p.Signature = nested
	case json.Unmarshal(raw.Signature, &flat) == nil:
		p.Signature.Signature = flat
	default:
		return nil, fmt.Errorf("failed to decode signature: unexpected %s", string(raw.Signature))
	}

	p.Signature.Timestamp = firstNonEmpty(p.Signature.Timestamp, raw.Timestamp)
	p.Signature.Token = firstNonEmpty(p.Signature.Token, raw.Token)

	if p.Signature.Empty() {
		return p, ErrMissingSignature
	}
	return p, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
