package recovery

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Minimum length of the shorter side of a comparison. Shorter answers are
// too easy to guess by substring.
const (
	minTextLen   = 2
	minHandleLen = 3
	minPhoneLen  = 7
)

// Match compares a user's answer with the stored value using the rule for
// kind. Blank inputs never match.
func Match(kind Kind, stored, answer string) bool {
	switch kind {
	case KindURL:
		return containsEither(normalizeURL(stored), normalizeURL(answer), minHandleLen)
	case KindPhone:
		return suffixEither(digits(stored), digits(answer), minPhoneLen)
	default:
		return containsEither(normalizeText(stored), normalizeText(answer), minTextLen)
	}
}

func containsEither(a, b string, minLen int) bool {
	if min(len(a), len(b)) < minLen {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func suffixEither(a, b string, minLen int) bool {
	if min(len(a), len(b)) < minLen {
		return false
	}
	return strings.HasSuffix(a, b) || strings.HasSuffix(b, a)
}

// Site prefixes carry no identifying information, so they are dropped and
// only the handle is compared.
var sitePrefixes = []string{
	"github.com/",
	"linkedin.com/in/",
	"linkedin.com/",
}

func normalizeURL(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, p := range []string{"https://", "http://"} {
		v = strings.TrimPrefix(v, p)
	}
	v = strings.TrimPrefix(v, "www.")
	v = strings.ReplaceAll(v, "@", "")
	for _, p := range sitePrefixes {
		v = strings.TrimPrefix(v, p)
	}
	return strings.TrimRight(v, "/")
}

func digits(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var folder = cases.Fold()

// normalizeText strips accents and folds case so "José" matches "jose".
func normalizeText(v string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, v)
	if err != nil {
		out = v
	}
	return strings.Join(strings.Fields(folder.String(out)), " ")
}
