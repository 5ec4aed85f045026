// Package models defines the wire types and persisted records for the
// scraper + accessibility simplifier service.
package models

// Simplification modes. ModeAll fans out over the three fixed modes.
const (
	ModeEasyRead   = "easy_read"
	ModeChecklist  = "checklist"
	ModeStepByStep = "step_by_step"
	ModeAll        = "all"
)

// AllModes is the fixed mode set "all" expands to, in response order.
var AllModes = []string{ModeEasyRead, ModeChecklist, ModeStepByStep}

// Supported output languages.
const (
	LangEnglish = "en"
	LangChinese = "zh"
	LangMalay   = "ms"
	LangTamil   = "ta"
)

func ValidMode(mode string) bool {
	switch mode {
	case ModeEasyRead, ModeChecklist, ModeStepByStep, ModeAll:
		return true
	}
	return false
}

func ValidLanguage(lang string) bool {
	switch lang {
	case LangEnglish, LangChinese, LangMalay, LangTamil:
		return true
	}
	return false
}

type ScrapRequest struct {
	URL string `json:"url"`
}

type ScrapResponse struct {
	OK     bool        `json:"ok"`
	URL    string      `json:"url"`
	Meta   PageMeta    `json:"meta"`
	Blocks Blocks      `json:"blocks"`
	Links  []LinkItem  `json:"links"`
	Images []ImageItem `json:"images"`
}

type SimplifyRequest struct {
	URL        string `json:"url"`
	Mode       string `json:"mode"`
	Language   string `json:"language"`
	SessionID  string `json:"session_id,omitempty"`
	ForceRegen bool   `json:"force_regen,omitempty"`
}

type SimplifyResponse struct {
	OK                bool                      `json:"ok"`
	URL               string                    `json:"url"`
	PageID            string                    `json:"page_id"`
	SourceTextHash    string                    `json:"source_text_hash"`
	Language          string                    `json:"language"`
	Model             string                    `json:"model"`
	Outputs           map[string]map[string]any `json:"outputs"`
	SimplificationIDs map[string]string         `json:"simplification_ids"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	URL    string `json:"url,omitempty"`
	PageID string `json:"page_id,omitempty"`

	Mode             string `json:"mode"`
	Language         string `json:"language"`
	SimplificationID string `json:"simplification_id,omitempty"`

	// SectionText is verbatim text the user is asking about; SectionID is a
	// section heading to match in the cached simplification.
	SectionID   string `json:"section_id,omitempty"`
	SectionText string `json:"section_text,omitempty"`

	Message   string        `json:"message"`
	History   []ChatMessage `json:"history,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
}

type ChatResponse struct {
	OK               bool   `json:"ok"`
	Model            string `json:"model"`
	Answer           string `json:"answer"`
	PageID           string `json:"page_id,omitempty"`
	SimplificationID string `json:"simplification_id,omitempty"`
}

// CompletionRequest accepts either a bare text prompt or a full message
// list; Text is ignored when Messages is present.
type CompletionRequest struct {
	Text        string        `json:"text,omitempty"`
	Messages    []ChatMessage `json:"messages,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type CompletionResponse struct {
	OK       bool   `json:"ok"`
	Model    string `json:"model"`
	Response string `json:"response"`
}

type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
