package markdown

import "testing"

func TestEscapeV2(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Plain", "hello world", "hello world"},
		{"Sentence", "Revenue grew 5.2% (year-over-year)!", `Revenue grew 5\.2% \(year\-over\-year\)\!`},
		{"Backslash", `a\b`, `a\\b`},
		{"Formatting", "*bold* _it_ `code` [link](url)", "\\*bold\\* \\_it\\_ \\`code\\` \\[link\\]\\(url\\)"},
		{"Unicode", "Привет. Мир!", `Привет\. Мир\!`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := EscapeV2(test.input)
			if got != test.want {
				t.Errorf("Expected %q, got %q", test.want, got)
			}

			if n := EscapedLen(test.input); n != len(got) {
				t.Errorf("Expected escaped length %d, got %d", len(got), n)
			}
		})
	}
}

func TestBoldAndItalic(t *testing.T) {
	if got := Bold("v1.2"); got != `*v1\.2*` {
		t.Errorf("unexpected bold: %q", got)
	}

	if got := Italic("a-b"); got != `_a\-b_` {
		t.Errorf("unexpected italic: %q", got)
	}
}
