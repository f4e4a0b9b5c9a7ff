package utils

import "strings"

var quotableReplacer = strings.NewReplacer(`"`, "'", "\r\n", " ", "\n", " ", "\r", " ")

// Quotable returns s in a form that can sit inside a double-quoted value on a
// single event line: double quotes become single quotes and line breaks become
// spaces.
func Quotable(s string) string {
	return quotableReplacer.Replace(s)
}

var singleLineReplacer = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`)

// SingleLine escapes backslashes and line breaks so that s fits on one line.
// Distinct inputs stay distinct.
func SingleLine(s string) string {
	return singleLineReplacer.Replace(s)
}

// IsSingleLine reports whether s contains no line separators.
func IsSingleLine(s string) bool {
	return !strings.ContainsAny(s, "\r\n")
}
