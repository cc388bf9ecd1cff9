package parser

import "testing"

func TestResolveRecipient(t *testing.T) {
	const monitored = "relay@example.com"

	tests := []struct {
		name       string
		envelopeTo string
		body       string
		want       string
	}{
		{"envelope only", "user1@example.com", "Tu código es 1234", "user1@example.com"},
		{"envelope is trimmed", "  user1@example.com ", "", "user1@example.com"},
		{"empty envelope falls back to sentinel", "", "no forwarding line", "unknown"},
		{"forwarded english", monitored, "---------- Forwarded message ---------\nFrom: Netflix <info@account.netflix.com>\nTo: user.two@gmail.com\n", "user.two@gmail.com"},
		{"forwarded spanish", monitored, "De: Netflix\nPara: cuenta_3@hotmail.es\nAsunto: Tu código", "cuenta_3@hotmail.es"},
		{"enviado a", "", "Enviado a:   otra-cuenta@dominio.com.mx", "otra-cuenta@dominio.com.mx"},
		{"case insensitive", monitored, "para: MAYUS@Example.COM", "MAYUS@Example.COM"},
		{"body wins even when equal to monitored", "someone@example.com", "To: " + monitored, monitored},
		{"first forwarding line wins", monitored, "To: first@example.com\nTo: second@example.com", "first@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRecipient(tt.envelopeTo, tt.body, monitored)
			if got != tt.want {
				t.Errorf("ResolveRecipient() = %q, want %q", got, tt.want)
			}
			if again := ResolveRecipient(tt.envelopeTo, tt.body, monitored); again != got {
				t.Errorf("ResolveRecipient() not idempotent: %q then %q", got, again)
			}
		})
	}
}
