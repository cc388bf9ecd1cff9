package parser

import (
	"testing"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

func TestExtract(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name string
		text string
		html string
		want *Extraction
	}{
		{
			name: "spaced digits in text",
			text: "Tu código es 8 1 9 1",
			want: &Extraction{Kind: models.KindCode, Value: "8191"},
		},
		{
			name: "spaced digits across newlines and tabs",
			text: "Ingresa este código:\n\n  4 \t 0\n7   3\n\nGracias",
			want: &Extraction{Kind: models.KindCode, Value: "4073"},
		},
		{
			name: "isolated four digits",
			text: "Your sign-in code is 5521. It expires in 15 minutes.",
			want: &Extraction{Kind: models.KindCode, Value: "5521"},
		},
		{
			name: "year is skipped in favour of the code",
			text: "© 2025 Netflix. Código: 3344",
			want: &Extraction{Kind: models.KindCode, Value: "3344"},
		},
		{
			name: "longer numbers are not codes",
			text: "Reference 123456 and order 99887",
		},
		{
			name: "household link wins over digits",
			text: "Profile Kids 1234",
			html: `<a href="https://www.netflix.com/account/update-household/abc?x=1&amp;y=2">Sí, la envié yo</a>`,
			want: &Extraction{Kind: models.KindURL, Value: "https://www.netflix.com/account/update-household/abc?x=1&y=2"},
		},
		{
			name: "raw href fragment",
			html: `href="https://www.netflix.com/account/update-household/abc?x=1&amp;y=2"`,
			want: &Extraction{Kind: models.KindURL, Value: "https://www.netflix.com/account/update-household/abc?x=1&y=2"},
		},
		{
			name: "travel link with single quotes",
			html: `<a href='https://www.netflix.com/account/travel/verify?nftoken=AB12&amp;g=9'>Get code</a>`,
			want: &Extraction{Kind: models.KindURL, Value: "https://www.netflix.com/account/travel/verify?nftoken=AB12&g=9"},
		},
		{
			name: "unquoted href needs the html parser",
			html: `<p>Hola</p><a href=https://www.netflix.com/account/household/confirm?t=1&#38;s=2>Confirmar</a>`,
			want: &Extraction{Kind: models.KindURL, Value: "https://www.netflix.com/account/household/confirm?t=1&s=2"},
		},
		{
			name: "other netflix links are ignored",
			html: `<a href="https://help.netflix.com/legal/privacy">Privacy</a><td>7 2 6 1</td>`,
			want: &Extraction{Kind: models.KindCode, Value: "7261"},
		},
		{
			name: "text is searched before html",
			text: "Código 1111",
			html: "<b>2 2 2 2</b>",
			want: &Extraction{Kind: models.KindCode, Value: "1111"},
		},
		{
			name: "digits split by tags in html",
			html: `<td>8</td><td>1</td><td>9</td><td>1</td>`,
			want: &Extraction{Kind: models.KindCode, Value: "8191"},
		},
		{
			name: "non-breaking spaces in html",
			html: `<span>6&nbsp;0&nbsp;3&nbsp;9</span>`,
			want: &Extraction{Kind: models.KindCode, Value: "6039"},
		},
		{
			name: "nothing to find",
			text: "Hola, gracias por ser parte de Netflix.",
			html: "<p>Hola</p>",
		},
		{
			name: "empty input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text, tt.html)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("Extract() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Extract() = nil, want %+v", tt.want)
			}
			if *got != *tt.want {
				t.Errorf("Extract() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtract_RejectsYears(t *testing.T) {
	e := NewExtractor()

	for _, year := range []string{"2020", "2021", "2022", "2023", "2024", "2025", "2026", "2027", "2028", "2029"} {
		if got := e.Extract("Netflix "+year, ""); got != nil {
			t.Errorf("Extract(%q) = %+v, want nil", year, got)
		}
		if got := e.Extract("", "<footer>&copy; "+year+" Netflix</footer>"); got != nil {
			t.Errorf("Extract(html %q) = %+v, want nil", year, got)
		}
	}

	// Other years starting with 20 are not excluded
	if got := e.Extract("Netflix 2019", ""); got == nil || got.Value != "2019" {
		t.Errorf("Extract(2019) = %+v, want code 2019", got)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	e := NewExtractor()
	text := "Código 4 4 1 2"

	first := e.Extract(text, "")
	for i := 0; i < 10; i++ {
		got := e.Extract(text, "")
		if got == nil || *got != *first {
			t.Fatalf("Extract() run %d = %+v, want %+v", i, got, first)
		}
	}
}
