package mailgun

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(timestamp, token, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(timestamp + token))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	valid := sign("t1", "tok1", "secret")

	tests := []struct {
		name      string
		timestamp string
		token     string
		signature string
		key       string
		want      bool
	}{
		{"valid", "t1", "tok1", valid, "secret", true},
		{"timestamp altered", "t2", "tok1", valid, "secret", false},
		{"token altered", "t1", "tok2", valid, "secret", false},
		{"signature altered", "t1", "tok1", sign("t1", "tok1", "other"), "secret", false},
		{"secret altered", "t1", "tok1", valid, "secret2", false},
		{"uppercase hex is not accepted", "t1", "tok1", toUpper(valid), "secret", false},
		{"empty signature", "t1", "tok1", "", "secret", false},
		{"empty key accepts valid", "t1", "tok1", valid, "", true},
		{"empty key accepts garbage", "x", "y", "not-a-signature", "", true},
		{"empty key accepts empty", "", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(tt.timestamp, tt.token, tt.signature, tt.key); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
