package voice

import (
	"regexp"
	"strings"
)

var (
	emojiRe    = regexp.MustCompile(`[\x{1F300}-\x{1F9FF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}\x{1F000}-\x{1F02F}\x{1F0A0}-\x{1F0FF}\x{1F100}-\x{1F64F}\x{FE00}-\x{FE0F}]`)
	htmlTagRe  = regexp.MustCompile(`<[^>]*>`)
	markdownRe = regexp.MustCompile("[*#_~`]")
)

// CleanText strips emoji, HTML tags and markdown markers and collapses
// whitespace so the text reads naturally when spoken.
func CleanText(s string) string {
	s = emojiRe.ReplaceAllString(s, "")
	s = htmlTagRe.ReplaceAllString(s, "")
	s = markdownRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
