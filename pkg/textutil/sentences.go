// Package textutil holds plain-text helpers shared by the content agents,
// research and claim verification.
package textutil

import (
	"strings"
	"unicode"
)

// SplitSentences breaks text after ., ! or ? when followed by whitespace or
// the end of a line, and at every line break. Runs such as "?!" or "..." stay
// with the sentence they close. Decimals like "3.5" do not split.
func SplitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		runes := []rune(line)
		start := 0
		for i, r := range runes {
			if r != '.' && r != '!' && r != '?' {
				continue
			}
			if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
				continue
			}
			if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}
