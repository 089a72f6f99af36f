package util

import "testing"

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "''"},
		{"plain", "plain"},
		{"/data/project", "/data/project"},
		{"has space", "'has space'"},
		{"$HOME/dir", "'$HOME/dir'"},
		{"it's", `'it'\''s'`},
		{"a;b", "'a;b'"},
	}

	for _, tt := range tests {
		if got := ShellQuote(tt.in); got != tt.want {
			t.Errorf("ShellQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
