package query

import "strings"

// tagEscapeChars is the full RediSearch tokenization escape set (the
// `DEFAULT_ESCAPED_CHARS` class from aredis_om's token_escaper.py, which
// is a superset of vecdex's hand-rolled tagEscaper/queryEscaper lists).
const tagEscapeChars = `,.<>{}[]\"':;!@#$%^&*()-+=~ `

var tagEscaper = strings.NewReplacer(pairEscapes(tagEscapeChars)...)

// escapeTag backslash-escapes a value for embedding inside an
// @field:{...} TAG filter (spec.md §4.6 rule 1).
func escapeTag(v string) string {
	return tagEscaper.Replace(v)
}

// escapeText escapes a value for embedding inside an @field:(...) TEXT
// filter. TEXT tokenization uses the same escape class as TAG.
func escapeText(v string) string {
	return tagEscaper.Replace(v)
}

func pairEscapes(chars string) []string {
	pairs := make([]string, 0, len(chars)*2)
	for _, c := range chars {
		s := string(c)
		pairs = append(pairs, s, `\`+s)
	}
	return pairs
}
