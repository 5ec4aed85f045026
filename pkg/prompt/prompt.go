// Package prompt builds the mode- and language-specific instructions sent
// to the model, including the explicit output schema for each
// simplification mode.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clearweb/clearweb/models"
	"github.com/clearweb/clearweb/pkg/llm"
)

const maxLinkLabel = 80

// Link is a filtered context link offered to the model.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ImportantLinks filters page links into model context: mailto and
// javascript targets are dropped, labels fall back to the URL and are
// truncated, and the count is capped.
func ImportantLinks(links []models.LinkItem, max int) []Link {
	cleaned := make([]Link, 0, max)
	for _, l := range links {
		href := strings.TrimSpace(l.Href)
		if href == "" {
			continue
		}
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:") {
			continue
		}
		label := strings.TrimSpace(l.Text)
		if label == "" {
			label = href
		}
		if len(label) > maxLinkLabel {
			label = label[:maxLinkLabel]
		}
		cleaned = append(cleaned, Link{Label: label, URL: href})
		if len(cleaned) >= max {
			break
		}
	}
	return cleaned
}

// languageNames maps language codes to the names used in instructions.
var languageNames = map[string]string{
	models.LangEnglish: "English",
	models.LangChinese: "Simplified Chinese (简体中文)",
	models.LangMalay:   "Malay (Bahasa Melayu)",
	models.LangTamil:   "Tamil (தமிழ்)",
}

// LanguageInstruction pins human-readable values to the target language
// while keeping structural keys fixed.
func LanguageInstruction(lang string) string {
	name, ok := languageNames[lang]
	if !ok {
		name = "English"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "All human-readable TEXT VALUES must be in %s. ", name)
	sb.WriteString("DO NOT translate JSON keys. Keep JSON keys exactly as provided. ")
	sb.WriteString("URLs may remain unchanged. Proper nouns may remain unchanged. ")
	switch lang {
	case models.LangMalay:
		sb.WriteString("Avoid English sentences. Use Malay sentence structure. ")
		sb.WriteString("If you accidentally produce English, rewrite fully into Malay.")
	case models.LangChinese:
		sb.WriteString("Use Simplified Chinese characters. If you produce English, rewrite into Chinese.")
	case models.LangTamil:
		sb.WriteString("Use Tamil script characters. If you produce English, rewrite into Tamil.")
	}
	return sb.String()
}

// Schema skeletons per mode. These are instances for the model to imitate,
// not JSON Schema documents.
const (
	easyReadSchema = `{"mode":"easy_read","about":"string","key_points":["string"],` +
		`"sections":[{"heading":"string","bullets":["string"]}],` +
		`"important_links":[{"label":"string","url":"string"}],` +
		`"warnings":["string"],"glossary":[{"term":"string","simple":"string"}]}`

	checklistSchema = `{"mode":"checklist","goal":"string",` +
		`"requirements":[{"item":"string","details":"string","required":true}],` +
		`"documents":[{"item":"string","details":"string"}],` +
		`"fees":[{"item":"string","amount":"string"}],` +
		`"deadlines":[{"item":"string","date":"string"}],` +
		`"actions":[{"item":"string","url":"string"}],` +
		`"common_mistakes":["string"]}`

	stepByStepSchema = `{"mode":"step_by_step","goal":"string",` +
		`"steps":[{"step":1,"title":"string","what_to_do":"string",` +
		`"where_to_click":"string","url":null,"tips":["string"]}],` +
		`"finish_check":["string"]}`
)

func schemaForMode(mode string) (string, error) {
	switch mode {
	case models.ModeEasyRead:
		return easyReadSchema, nil
	case models.ModeChecklist:
		return checklistSchema, nil
	case models.ModeStepByStep:
		return stepByStepSchema, nil
	}
	return "", fmt.Errorf("unknown mode: %s", mode)
}

type promptContext struct {
	Title      string `json:"title"`
	SourceText string `json:"source_text"`
	Links      []Link `json:"links"`
}

// ForMode builds the system and user messages for one simplification mode.
// The system message fixes output format and reading level; the user
// message carries the bounded source context and the schema to instantiate.
func ForMode(mode, title, sourceText string, links []Link, language string) ([]llm.Message, error) {
	schema, err := schemaForMode(mode)
	if err != nil {
		return nil, err
	}

	system := "You are an accessibility assistant. " +
		"Rewrite complex webpages into formats that reduce cognitive load. " +
		"Return ONLY valid JSON. No markdown. No extra text. " +
		"DO NOT include the schema, the task description, or the context in the output. " +
		"Output must be a JSON object that MATCHES the schema instance. " +
		"Use short sentences and plain language. Prefer bullets and steps. " +
		"If jargon appears, define it in a glossary. " +
		LanguageInstruction(language)

	if links == nil {
		links = []Link{}
	}
	ctx, err := json.Marshal(promptContext{Title: title, SourceText: sourceText, Links: links})
	if err != nil {
		return nil, fmt.Errorf("marshaling prompt context: %w", err)
	}

	user := "CONTEXT (use this to write the output):\n" +
		string(ctx) + "\n\n" +
		"OUTPUT SCHEMA (produce an instance of this; do not output the schema itself):\n" +
		schema + "\n\n" +
		"REMINDER:\n" +
		"- Return ONLY the final JSON object.\n" +
		"- Do NOT include any extra keys like task/output_schema/context.\n" +
		"- Keep bullets/steps short.\n"

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}, nil
}

// Corrective builds the retry message sent after a validation failure,
// naming the concrete problems found.
func Corrective(language, reason string) string {
	return "Your previous output was INVALID.\n" +
		"Problems: " + reason + "\n\n" +
		"Fix it now and return ONLY the corrected JSON object.\n" +
		"Do NOT include the schema, task, or context.\n" +
		LanguageInstruction(language)
}

// ChatSystem builds the system message for contextual Q&A.
func ChatSystem(language string) string {
	return "You are a helpful accessibility assistant embedded in a browser extension. " +
		"Answer using only the provided context. " +
		"Use very simple language. Short sentences. " +
		LanguageInstruction(language) +
		" If asked for steps, respond as numbered steps. " +
		"If asked for a checklist, respond as bullet points. " +
		"If not sure, say so and suggest what to look for on the page."
}
