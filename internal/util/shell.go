package util

import "strings"

// ShellQuote quotes s for safe interpolation into a POSIX shell command line.
// Uses single quotes, escaping embedded single quotes with the '\'' idiom.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'`$\\!*?[](){}<>|&;~#") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
