// ABOUTME: Tests for text normalization rules and their ordering.
// ABOUTME: Covers identifier styles, URLs, whitespace handling and idempotence.
package embeddings

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"kebab case", "automatically-stop-rds-databases", "automatically stop rds databases"},
		{"camel case", "getUserProfile", "get User Profile"},
		{"pascal case", "HttpServerConfig", "Http Server Config"},
		{"snake case", "max_retry_count", "max retry count"},
		{"url path", "https://example.com/api/user-settings", "https: example.com api user settings"},
		{"acronym run", "parseHTTPRequest", "parse HTTPRequest"},
		{"camel after dash", "foo-barBaz", "foo bar Baz"},
		{"whitespace runs", "  lots   of \t space\n", "lots of space"},
		{"punctuation kept", "Hello, world!", "Hello, world!"},
		{"no lowercasing", "ALL CAPS", "ALL CAPS"},
		{"non ascii case untouched", "éÉ", "éÉ"},
		{"only separators", "_-/", ""},
		{"empty", "", ""},
		{"whitespace only unchanged", "   \t ", "   \t "},
		{"byte order mark is space", "foo\uFEFFbar", "foo bar"},
		{"leading byte order mark trimmed", "\uFEFFgetUser", "get User"},
		{"no-break space collapsed", "a\u00a0\u00a0b", "a b"},
		{"next line is not space", "a\u0085b", "a\u0085b"},
		{"byte order mark only unchanged", "\uFEFF", "\uFEFF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"automatically-stop-rds-databases",
		"getUserProfile",
		"aBcDeF",
		"snake_case-and-kebab/and/slashes",
		"  mixed__Case--Input//here  ",
		"XMLHttpRequest",
		"",
		"   ",
		"_",
		"plain words already",
	}

	for _, s := range inputs {
		once := Normalize(s)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}
