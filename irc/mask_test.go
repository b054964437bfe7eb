package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchMask(t *testing.T) {
	tests := []struct {
		mask  string
		value string
		want  bool
	}{
		{"nick!user@host", "nick!user@host", true},
		{"nick!user@host", "nick!user@other", false},
		{"*", "anything at all", true},
		{"*", "", true},
		{"*!*@*", "nick!user@host", true},
		{"nick!*@*", "nick!user@host", true},
		{"nick!*@*", "other!user@host", false},
		{"*@192.168.*", "nick!user@192.168.1.5", true},
		{"*@192.168.*", "nick!user@10.0.0.1", false},
		{"n?ck!*@*", "nick!user@host", true},
		{"n?ck!*@*", "nck!user@host", false},
		{"a*b*c", "aXXbYYc", true},
		{"a*b*c", "aXXbYY", false},
		{`literal\*star`, "literal*star", true},
		{`literal\*star`, "literalXstar", false},
		{`who\?`, "who?", true},
		{`who\?`, "whoX", false},
		{"", "", true},
		{"", "x", false},
		{"**", "x", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchMask(tt.mask, tt.value),
			"MatchMask(%q, %q)", tt.mask, tt.value)
	}
}
