// Package validate checks model output against each simplification mode's
// schema. Parsing is deliberately two-stage: a strict JSON parse first,
// then a best-effort extraction of the first top-level object span, because
// models wrap JSON in prose and code fences despite instructions.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/clearweb/clearweb/models"
)

// ErrNoJSON means no parseable JSON object was found in the text.
var ErrNoJSON = errors.New("model did not return JSON")

// ParseLoose parses text as a JSON object, falling back to the first
// balanced {...} span when the strict parse fails.
func ParseLoose(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj, nil
	}

	span, ok := objectSpan(text)
	if !ok {
		return nil, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	return obj, nil
}

// objectSpan finds the first balanced top-level {...} span, tracking brace
// depth outside of string literals.
func objectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// EnsureMap returns v as a map, or an empty map for anything else.
func EnsureMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// ByMode normalizes mode-specific quirks and verifies the object carries
// every required key with the right container type. The returned reason
// names the offending field on failure.
func ByMode(mode string, obj map[string]any) (bool, string, map[string]any) {
	switch mode {
	case models.ModeEasyRead:
		norm := withDefault(obj, "mode", models.ModeEasyRead)
		ok, reason := checkEasyRead(norm)
		return ok, reason, norm
	case models.ModeChecklist:
		norm := normalizeChecklist(obj)
		ok, reason := checkChecklist(norm)
		return ok, reason, norm
	case models.ModeStepByStep:
		norm := withDefault(obj, "mode", models.ModeStepByStep)
		ok, reason := checkStepByStep(norm)
		return ok, reason, norm
	}
	return false, fmt.Sprintf("unknown mode %s", mode), obj
}

func checkEasyRead(obj map[string]any) (bool, string) {
	required := []string{"mode", "about", "key_points", "sections", "important_links", "warnings", "glossary"}
	for _, k := range required {
		if _, ok := obj[k]; !ok {
			return false, "easy_read missing key: " + k
		}
	}
	if obj["mode"] != models.ModeEasyRead {
		return false, "easy_read.mode must be 'easy_read'"
	}
	if !isList(obj["key_points"]) {
		return false, "easy_read.key_points must be a list"
	}
	if !isList(obj["sections"]) {
		return false, "easy_read.sections must be a list"
	}
	return true, "ok"
}

// normalizeChecklist unwraps an output nested under a "checklist" key — a
// recurring model quirk — and fills the list fields with empty defaults.
func normalizeChecklist(obj map[string]any) map[string]any {
	if nested, ok := obj["checklist"].(map[string]any); ok {
		obj = nested
	}
	norm := make(map[string]any, len(obj)+8)
	for k, v := range obj {
		norm[k] = v
	}
	setDefault(norm, "mode", models.ModeChecklist)
	setDefault(norm, "goal", "")
	for _, k := range []string{"requirements", "documents", "fees", "deadlines", "actions", "common_mistakes"} {
		setDefault(norm, k, []any{})
	}
	return norm
}

func checkChecklist(obj map[string]any) (bool, string) {
	required := []string{"mode", "goal", "requirements", "documents", "fees", "deadlines", "actions", "common_mistakes"}
	for _, k := range required {
		if _, ok := obj[k]; !ok {
			return false, "checklist missing key: " + k
		}
	}
	if obj["mode"] != models.ModeChecklist {
		return false, "checklist.mode must be 'checklist'"
	}
	if !isList(obj["requirements"]) {
		return false, "checklist.requirements must be a list"
	}
	return true, "ok"
}

func checkStepByStep(obj map[string]any) (bool, string) {
	required := []string{"mode", "goal", "steps", "finish_check"}
	for _, k := range required {
		if _, ok := obj[k]; !ok {
			return false, "step_by_step missing key: " + k
		}
	}
	if obj["mode"] != models.ModeStepByStep {
		return false, "step_by_step.mode must be 'step_by_step'"
	}
	steps, ok := obj["steps"].([]any)
	if !ok {
		return false, "step_by_step.steps must be a list"
	}
	if len(steps) > 0 {
		first, ok := steps[0].(map[string]any)
		if !ok {
			return false, "step_by_step.steps items must be objects"
		}
		for _, k := range []string{"step", "title", "what_to_do", "where_to_click"} {
			if _, ok := first[k]; !ok {
				return false, "step_by_step.steps[0] missing " + k
			}
		}
	}
	return true, "ok"
}

func isList(v any) bool {
	_, ok := v.([]any)
	return ok
}

func withDefault(obj map[string]any, key string, value any) map[string]any {
	norm := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		norm[k] = v
	}
	setDefault(norm, key, value)
	return norm
}

func setDefault(obj map[string]any, key string, value any) {
	if _, ok := obj[key]; !ok {
		obj[key] = value
	}
}
