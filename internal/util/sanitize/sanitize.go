// Package sanitize cleans values pasted into prompts.
//
// Values copied from browser developer tools or rendered documents often
// carry invisible characters that break cookies and URLs silently.
package sanitize

import (
	"strings"
)

// invisible lists zero-width and formatting characters that never belong in
// a setting.
var invisible = strings.NewReplacer(
	"\u200B", "", // zero-width space
	"\u200C", "", // zero-width non-joiner
	"\u200D", "", // zero-width joiner
	"\uFEFF", "", // byte order mark
	"\u00AD", "", // soft hyphen
	"\u2060", "", // word joiner
	"\u180E", "", // mongolian vowel separator
)

// Field removes invisible characters and surrounding whitespace, including
// CR left over from Windows line endings.
func Field(field string) string {
	if field == "" {
		return field
	}
	return strings.TrimSpace(invisible.Replace(field))
}

// Token cleans a credential. Credentials never contain whitespace, so any
// whitespace inside a pasted token is dropped as well.
func Token(token string) string {
	token = Field(token)
	if !strings.ContainsAny(token, " \t\r\n") {
		return token
	}
	return strings.Join(strings.Fields(token), "")
}
