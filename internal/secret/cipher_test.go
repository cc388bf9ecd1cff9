package secret

import "testing"

const testKey = "0123456789abcdef0123456789abcdef"

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}

	encrypted, err := c.Encrypt("app-password")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if encrypted == "app-password" {
		t.Fatal("Encrypt() returned the plaintext")
	}

	decrypted, err := c.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if decrypted != "app-password" {
		t.Errorf("Decrypt() = %q", decrypted)
	}
}

func TestCipher_WrongKey(t *testing.T) {
	a, _ := NewCipher(testKey)
	b, _ := NewCipher("fedcba9876543210fedcba9876543210")

	encrypted, err := a.Encrypt("app-password")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := b.Decrypt(encrypted); err == nil {
		t.Error("Decrypt() with the wrong key should fail")
	}
	if _, err := a.Decrypt("%%%"); err == nil {
		t.Error("Decrypt() of invalid base64 should fail")
	}
}

func TestCipher_Passthrough(t *testing.T) {
	c, err := NewCipher("")
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	if c.Enabled() {
		t.Error("Enabled() = true without a key")
	}

	got, _ := c.Encrypt("plain")
	if got != "plain" {
		t.Errorf("Encrypt() = %q, want passthrough", got)
	}
	got, _ = c.Decrypt("plain")
	if got != "plain" {
		t.Errorf("Decrypt() = %q, want passthrough", got)
	}
}

func TestNewCipher_BadKey(t *testing.T) {
	if _, err := NewCipher("short"); err == nil {
		t.Error("NewCipher() should reject keys that are not 32 bytes")
	}
}
