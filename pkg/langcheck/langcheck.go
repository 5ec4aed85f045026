// Package langcheck verifies that generated output is written in the
// requested language. The checks are heuristics by nature, so the checker
// is an interface: the default marker-based heuristic can be swapped for
// the lingua-go detector without touching the generation loop.
package langcheck

import (
	"strings"
	"unicode"

	"github.com/clearweb/clearweb/models"
)

// Checker reports whether text is plausibly written in lang. English
// always passes; an empty text never does for non-English targets.
type Checker interface {
	Check(lang, text string) bool
}

// FlattenText pulls every string value out of a nested JSON-like object
// into one space-joined string, for feeding whole outputs to a Checker.
func FlattenText(obj any) string {
	var parts []string
	var walk func(v any)
	walk = func(v any) {
		switch x := v.(type) {
		case string:
			parts = append(parts, x)
		case []any:
			for _, item := range x {
				walk(item)
			}
		case map[string]any:
			for _, val := range x {
				walk(val)
			}
		}
	}
	walk(obj)
	return strings.Join(parts, " ")
}

// malayHintWords are common Malay function and instruction words.
var malayHintWords = wordSet(
	"ini", "untuk", "dan", "yang", "anda", "boleh", "langkah", "dokumen",
	"permohonan", "sila", "perlu", "semak", "senarai", "panduan", "tujuan",
	"maklumat", "lebih", "lanjut",
)

// commonEnglishWords flag output that stayed in English.
var commonEnglishWords = wordSet(
	"the", "this", "that", "page", "domain", "used", "use", "for", "only",
	"not", "and", "about", "learn", "more", "example", "documentation",
	"operations",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Heuristic is the default checker: Unicode-block presence for Chinese and
// Tamil, a marker-word overlap test for Malay.
type Heuristic struct{}

func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Check(lang, text string) bool {
	switch lang {
	case models.LangEnglish:
		return true
	case models.LangChinese:
		return containsRange(text, 0x4E00, 0x9FFF)
	case models.LangTamil:
		return containsRange(text, 0x0B80, 0x0BFF)
	case models.LangMalay:
		return malayOK(text)
	}
	return true
}

func containsRange(text string, lo, hi rune) bool {
	for _, r := range text {
		if r >= lo && r <= hi {
			return true
		}
	}
	return false
}

// malayOK accepts when the text shows at least two Malay marker words, or
// reads as long-enough prose with almost no common English words.
func malayOK(text string) bool {
	words := latinWords(text)
	if len(words) == 0 {
		return false
	}
	malayHits := 0
	enHits := 0
	for _, w := range words {
		if _, ok := malayHintWords[w]; ok {
			malayHits++
		}
		if _, ok := commonEnglishWords[w]; ok {
			enHits++
		}
	}
	return malayHits >= 2 || (enHits <= 3 && len(words) >= 8)
}

// latinWords lowercases text and splits it into alphabetic words, dropping
// everything else.
func latinWords(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) && r < 128 {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return strings.Fields(cleaned)
}
