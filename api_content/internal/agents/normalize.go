package agents

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"tastesync/pkg/llm"
)

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func readingTime(words int) int {
	if words <= 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / wordsPerMinute))
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(html string) string {
	return tagPattern.ReplaceAllString(html, " ")
}

// decodePayload parses the model's JSON reply. ok is false when the reply
// carried no decodable object and the heuristic path should run instead.
func decodePayload[T any](raw string) (T, bool) {
	v, err := llm.DecodeJSON[T](raw)
	return v, err == nil
}

// splitParagraphs splits on blank lines.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitAtWords cuts s into pieces of at most limit runes, breaking between
// words. A single word longer than limit is cut mid-word.
func splitAtWords(s string, limit int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	for _, w := range strings.Fields(s) {
		for runeLen(w) > limit {
			flush()
			r := []rune(w)
			out = append(out, string(r[:limit]))
			w = string(r[limit:])
		}
		wl := runeLen(w)
		if curLen > 0 && curLen+1+wl > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(w)
		curLen += wl
	}
	flush()
	return out
}

// packChunks greedily joins units with sep into chunks of at most limit runes.
func packChunks(units []string, limit int, sep string) []string {
	var out []string
	cur := ""
	for _, u := range units {
		pieces := []string{u}
		if runeLen(u) > limit {
			pieces = splitAtWords(u, limit)
		}
		for _, p := range pieces {
			switch {
			case cur == "":
				cur = p
			case runeLen(cur)+runeLen(sep)+runeLen(p) <= limit:
				cur += sep + p
			default:
				out = append(out, cur)
				cur = p
			}
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// truncateAtWord cuts s to limit runes, backing up to the last space when one
// sits in the second half of the kept text.
func truncateAtWord(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	cut := string(r[:limit])
	if i := strings.LastIndex(cut, " "); i > 0 && runeLen(cut[:i]) > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:-")
}

var listPrefix = regexp.MustCompile(`(?i)^\s*(?:tweet\s*\d+\s*[:.)-]|\d+\s*/\s*\d*|\d+[.)](?:\s|$)|[-*•](?:\s|$))\s*`)

func stripListPrefix(line string) string {
	return strings.TrimSpace(listPrefix.ReplaceAllString(line, ""))
}

var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

func extractHashtags(text string) []string {
	return hashtagPattern.FindAllString(text, -1)
}

// normalizeHashtags prefixes '#', strips inner whitespace, drops empties and
// case-insensitive duplicates, and truncates to limit.
func normalizeHashtags(tags []string, limit int) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, min(len(tags), limit))
	for _, t := range tags {
		t = strings.Join(strings.Fields(t), "")
		t = "#" + strings.TrimLeft(t, "#")
		if t == "#" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

type keywordTag struct {
	keyword string
	tag     string
}

// Ordered so hashtag selection is deterministic.
var keywordDictionary = []keywordTag{
	{"artificial intelligence", "#AI"},
	{" ai ", "#AI"},
	{"machine learning", "#MachineLearning"},
	{"startup", "#Startups"},
	{"marketing", "#Marketing"},
	{"leadership", "#Leadership"},
	{"productivity", "#Productivity"},
	{"technology", "#Tech"},
	{"software", "#Software"},
	{"business", "#Business"},
	{"career", "#Career"},
	{"innovation", "#Innovation"},
	{"data", "#Data"},
	{"design", "#Design"},
	{"content", "#ContentCreation"},
	{"social media", "#SocialMedia"},
	{"growth", "#Growth"},
	{"remote", "#RemoteWork"},
	{"finance", "#Finance"},
	{"health", "#Health"},
}

// keywordHashtags returns dictionary tags whose keyword occurs in text.
func keywordHashtags(text string) []string {
	lower := " " + strings.ToLower(text) + " "
	var out []string
	for _, kw := range keywordDictionary {
		if strings.Contains(lower, kw.keyword) {
			out = append(out, kw.tag)
		}
	}
	return out
}

// keywordTopics is keywordHashtags without the '#'.
func keywordTopics(text string) []string {
	tags := normalizeHashtags(keywordHashtags(text), maxAnalysisListItems)
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = strings.TrimPrefix(t, "#")
	}
	return out
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
