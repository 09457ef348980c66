package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeTag_EscapesPunctuationAndSpace(t *testing.T) {
	assert.Equal(t, `foo\ bar`, escapeTag("foo bar"))
	assert.Equal(t, `a\.b\-c`, escapeTag("a.b-c"))
	assert.Equal(t, `100\%`, escapeTag("100%"))
}

func TestEscapeTag_LeavesPlainAlnumUntouched(t *testing.T) {
	assert.Equal(t, "hello123", escapeTag("hello123"))
}

func TestEscapeText_MatchesTagEscaping(t *testing.T) {
	assert.Equal(t, escapeTag("a b(c)"), escapeText("a b(c)"))
}
