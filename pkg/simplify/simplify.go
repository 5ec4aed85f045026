// Package simplify drives the model to produce schema-conforming,
// language-conforming structured output. The generator treats the model as
// an unreliable component with a bounded-retry contract: validation
// failures trigger a corrective retry, and exhaustion yields a well-defined
// degraded object instead of an error, so callers can still answer the
// user-facing request.
package simplify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clearweb/clearweb/pkg/langcheck"
	"github.com/clearweb/clearweb/pkg/llm"
	"github.com/clearweb/clearweb/pkg/prompt"
	"github.com/clearweb/clearweb/pkg/validate"
)

// Completer is the narrow slice of the LLM client the generator needs.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, temperature float64) (text, model string, err error)
	Model() string
}

// Generator runs the generation-and-validation loop.
type Generator struct {
	completer   Completer
	checker     langcheck.Checker
	maxRetries  int
	temperature float64
	logger      *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

func WithMaxRetries(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// NewGenerator builds a Generator with a small retry budget (default one
// retry) to bound latency and cost.
func NewGenerator(completer Completer, checker langcheck.Checker, opts ...Option) *Generator {
	g := &Generator{
		completer:   completer,
		checker:     checker,
		maxRetries:  1,
		temperature: 0.2,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces one validated output for a mode. A nil error with a
// degraded object (mode/raw/error keys) is returned after exhausting
// retries; a non-nil error only signals that the model itself was
// unreachable.
func (g *Generator) Generate(ctx context.Context, mode, title, sourceText string, links []prompt.Link, language string) (map[string]any, string, error) {
	messages, err := prompt.ForMode(mode, title, sourceText, links, language)
	if err != nil {
		return nil, "", err
	}

	var lastRaw, lastReason string

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		raw, model, err := g.completer.Complete(ctx, messages, g.temperature)
		if err != nil {
			return nil, "", fmt.Errorf("completion failed: %w", err)
		}
		lastRaw = raw

		obj, parseErr := validate.ParseLoose(raw)
		if parseErr != nil {
			obj = map[string]any{}
		}

		okSchema, reasonSchema, norm := validate.ByMode(mode, validate.EnsureMap(obj))
		if parseErr != nil {
			okSchema = false
			reasonSchema = "invalid JSON: " + parseErr.Error()
		}

		okLang := g.checker.Check(language, langcheck.FlattenText(norm))
		reasonLang := "ok"
		if !okLang {
			reasonLang = fmt.Sprintf("wrong language for '%s'", language)
		}

		if okSchema && okLang {
			return norm, model, nil
		}

		lastReason = reasonSchema + "; " + reasonLang
		g.logger.Warn("generation attempt invalid",
			"mode", mode, "language", language, "attempt", attempt, "reason", lastReason)

		if attempt < g.maxRetries {
			messages = append(messages,
				llm.Message{Role: llm.RoleAssistant, Content: raw},
				llm.Message{Role: llm.RoleUser, Content: prompt.Corrective(language, lastReason)},
			)
		}
	}

	// Soft degradation: the caller still answers with best-effort content.
	fallback := map[string]any{
		"mode":  mode,
		"raw":   lastRaw,
		"error": lastReason,
	}
	return fallback, g.completer.Model(), nil
}

// Degraded reports whether an output is the exhaustion fallback.
func Degraded(output map[string]any) bool {
	_, hasErr := output["error"]
	_, hasRaw := output["raw"]
	return hasErr && hasRaw
}

// Context selection bounds.
const (
	maxSectionTextChars = 4000
	maxSectionBullets   = 12
	maxFallbackChars    = 8000
)

// SelectContext picks the most specific available grounding for follow-up
// Q&A. Exactly one branch fires, in priority order: verbatim section text,
// then a section matched by heading, then the whole-page fallback.
func SelectContext(sourceText string, output map[string]any, mode, language, sectionID, sectionText string) map[string]any {
	ctx := map[string]any{"mode": mode, "language": language}

	if trimmed := strings.TrimSpace(sectionText); trimmed != "" {
		ctx["focus"] = "section_text"
		ctx["section_text"] = truncate(trimmed, maxSectionTextChars)
		if sectionID != "" {
			ctx["section_id"] = sectionID
		}
		return ctx
	}

	if sectionID != "" {
		if section, ok := matchSection(output, sectionID); ok {
			ctx["focus"] = "section_id"
			ctx["section_id"] = sectionID
			ctx["section_heading"] = section["heading"]
			ctx["section_bullets"] = boundedBullets(section["bullets"])
			return ctx
		}
	}

	ctx["focus"] = "page_fallback"
	ctx["simplified"] = output
	ctx["source_text"] = truncate(sourceText, maxFallbackChars)
	return ctx
}

// matchSection linear-scans output.sections for a heading whose
// case-insensitive trimmed text equals the identifier.
func matchSection(output map[string]any, sectionID string) (map[string]any, bool) {
	sections, ok := output["sections"].([]any)
	if !ok {
		return nil, false
	}
	want := strings.ToLower(strings.TrimSpace(sectionID))
	for _, raw := range sections {
		section, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		heading, _ := section["heading"].(string)
		if heading != "" && strings.ToLower(strings.TrimSpace(heading)) == want {
			return section, true
		}
	}
	return nil, false
}

func boundedBullets(v any) any {
	bullets, ok := v.([]any)
	if !ok {
		return v
	}
	if len(bullets) > maxSectionBullets {
		bullets = bullets[:maxSectionBullets]
	}
	return bullets
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
