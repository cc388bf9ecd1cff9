package mailgun

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks a Mailgun webhook signature.
//
// An empty secretKey disables verification and always returns true. This
// fails open and is not recommended in production.
func VerifySignature(timestamp, token, signature, secretKey string) bool {
	if secretKey == "" {
		return true
	}

	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(timestamp + token))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
