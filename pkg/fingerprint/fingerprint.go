// Package fingerprint derives the deterministic identifiers used as cache
// and storage keys. The algorithm (SHA-256), the field separator, and the
// hex encoding are frozen: changing any of them would strand every
// previously stored id.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

const sep = "|"

// PageID identifies a page independent of its content; re-scraping the
// same URL overwrites the same record.
func PageID(url string) string {
	return hash(url)
}

// SourceTextHash fingerprints the exact linearized text the model sees.
func SourceTextHash(text string) string {
	return hash(text)
}

// SimplificationID identifies one generated artifact. It changes whenever
// the url, mode, language, or source text hash changes, and never embeds
// time or randomness, so identical inputs collide to one stored record.
func SimplificationID(url, mode, language, sourceTextHash string) string {
	return hash(url + sep + mode + sep + language + sep + sourceTextHash)
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
