// Package phrase turns user-chosen secret phrases into stable, comparable
// tokens. Only the token is ever stored.
package phrase

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize folds case, applies NFC, trims, and collapses inner whitespace
// so that "Pizza  Is Life " and "pizza is life" normalize identically.
func Normalize(p string) string {
	p = norm.NFC.String(p)
	p = folder.String(p)
	return strings.Join(strings.Fields(p), " ")
}

// Hash returns the hex-encoded SHA-256 of the normalized phrase.
// The result is deterministic for equivalent phrases.
func Hash(p string) string {
	sum := sha256.Sum256([]byte(Normalize(p)))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether candidate hashes to stored. The comparison runs in
// constant time. An empty stored hash never matches.
func Matches(candidate, stored string) bool {
	if stored == "" {
		return false
	}
	got := Hash(candidate)
	return subtle.ConstantTimeCompare([]byte(got), []byte(stored)) == 1
}

// Empty reports whether p has no content once normalized.
func Empty(p string) bool {
	return Normalize(p) == ""
}
