package enrich

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var listMarker = regexp.MustCompile(`^\s*(?:[-*•#]+|\d+[.)])\s*`)

// ParseTags extracts the candidate tags named in a model's free-form answer. Each
// candidate is searched for as a whole phrase, case-insensitively, so list, prose and
// markdown answers all work. Only candidate spellings are returned, once each, in the
// order the model first mentioned them.
func ParseTags(output string, candidates []string) []string {
	if len(candidates) == 0 {
		return []string{}
	}
	haystack := strings.ToLower(output)

	type match struct {
		tag string
		pos int
	}
	seen := make(map[string]struct{}, len(candidates))
	matches := make([]match, 0, len(candidates))
	for _, c := range candidates {
		key := normalizeTag(c)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if pos := phraseIndex(haystack, key); pos >= 0 {
			matches = append(matches, match{tag: c, pos: pos})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	selected := make([]string, 0, len(matches))
	for _, m := range matches {
		selected = append(selected, m.tag)
	}
	return selected
}

// phraseIndex returns the first offset of phrase in s that is not glued to a
// neighbouring word, or -1.
func phraseIndex(s, phrase string) int {
	first, _ := utf8.DecodeRuneInString(phrase)
	last, _ := utf8.DecodeLastRuneInString(phrase)
	for offset := 0; offset <= len(s)-len(phrase); {
		i := strings.Index(s[offset:], phrase)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(phrase)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if !(start > 0 && isWordRune(before) && isWordRune(first)) &&
			!(end < len(s) && isWordRune(after) && isWordRune(last)) {
			return start
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
	return -1
}

// isWordRune reports whether r joins with its neighbours into one word. Han script is
// written without spaces, so it never does.
func isWordRune(r rune) bool {
	if unicode.Is(unicode.Han, r) {
		return false
	}
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func normalizeTag(s string) string {
	s = listMarker.ReplaceAllString(s, "")
	s = strings.Trim(s, "\"'`[]() \t")
	s = strings.TrimSuffix(s, ".")
	return strings.ToLower(strings.TrimSpace(s))
}
