package sanitize

import "testing"

func TestField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "https://cc.example.org/", "https://cc.example.org/"},
		{"surrounding whitespace", "  /data/in \t", "/data/in"},
		{"windows line ending", "cc.example.org\r\n", "cc.example.org"},
		{"zero-width space", "cc.exa\u200Bmple.org", "cc.example.org"},
		{"byte order mark", "\uFEFFvalue", "value"},
		{"soft hyphen", "stor\u00ADage", "storage"},
		{"inner spaces kept", "my data set", "my data set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Field(tt.input); got != tt.want {
				t.Errorf("Field(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestToken(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"eyJhbGciOi.abc", "eyJhbGciOi.abc"},
		{" eyJhbGciOi.abc\n", "eyJhbGciOi.abc"},
		{"eyJhbG\nciOi.abc", "eyJhbGciOi.abc"},
		{"eyJ\u200Bhbg ciOi", "eyJhbgciOi"},
	}
	for _, tt := range tests {
		if got := Token(tt.input); got != tt.want {
			t.Errorf("Token(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
