// Package linearize renders an ordered block sequence into a single
// bounded plain-text string. This string is both the model's view of the
// page and the input to the content fingerprint, so rendering must stay
// deterministic: identical blocks always produce identical text.
package linearize

import (
	"strings"

	"github.com/clearweb/clearweb/models"
)

const (
	// DefaultBudget is the character budget hinted to the renderer and
	// enforced as a hard cap on the final string.
	DefaultBudget = 24000

	maxListItemsRendered    = 12
	maxTableHeadersRendered = 8
)

// Text renders blocks to plain text. Headings become '#'-prefixed lines,
// lists become bullet lines, tables contribute only a header summary line.
// Rendering stops once the cumulative size passes budget, and the final
// string is hard-truncated to budget as a backstop.
func Text(blocks models.Blocks, budget int) string {
	if budget <= 0 {
		budget = DefaultBudget
	}

	var out []string
	total := 0
	push := func(line string) {
		out = append(out, line)
		total += len(line)
	}

	for _, b := range blocks {
		switch v := b.(type) {
		case models.Heading:
			if text := strings.TrimSpace(v.Text); text != "" {
				push(strings.Repeat("#", clampLevel(v.Level)) + " " + text)
			}
		case models.Paragraph:
			if text := strings.TrimSpace(v.Text); text != "" {
				push(text)
			}
		case models.List:
			n := len(v.Items)
			if n > maxListItemsRendered {
				n = maxListItemsRendered
			}
			for _, item := range v.Items[:n] {
				if item = strings.TrimSpace(item); item != "" {
					push("- " + item)
				}
			}
		case models.Table:
			// Row data is intentionally omitted to control size.
			if len(v.Headers) > 0 {
				n := len(v.Headers)
				if n > maxTableHeadersRendered {
					n = maxTableHeadersRendered
				}
				push("Table: " + strings.Join(v.Headers[:n], " | "))
			}
		case models.Quote:
			if text := strings.TrimSpace(v.Text); text != "" {
				push("> " + text)
			}
		case models.Code, models.Rule:
			// Not rendered; code is noisy and rules carry no text.
		}
		if total > budget {
			break
		}
	}

	text := strings.Join(out, "\n")
	if len(text) > budget {
		text = truncate(text, budget)
	}
	return text
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

// truncate cuts at a byte budget without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
