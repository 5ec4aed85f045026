package models

import "encoding/json"

// Page statuses.
const (
	PageStatusPlaceholder = "placeholder"
	PageStatusReady       = "ready"
)

// PageMeta holds document-level metadata for a scraped page.
type PageMeta struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Canonical   string `json:"canonical,omitempty"`
	Lang        string `json:"lang,omitempty"`

	// Readability enrichment; best-effort, may be empty.
	Author   string `json:"author,omitempty"`
	SiteName string `json:"site_name,omitempty"`
	Image    string `json:"image,omitempty"`
}

type LinkItem struct {
	Href       string `json:"href"`
	Text       string `json:"text"`
	IsInternal bool   `json:"is_internal"`
}

type ImageItem struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// PageRecord is the persisted snapshot of a scraped page. Its id is a pure
// function of the URL, so re-scraping the same URL overwrites one record.
type PageRecord struct {
	PageID         string      `json:"page_id"`
	URL            string      `json:"url"`
	Meta           PageMeta    `json:"meta"`
	Blocks         Blocks      `json:"blocks"`
	Links          []LinkItem  `json:"links"`
	Images         []ImageItem `json:"images"`
	SourceText     string      `json:"source_text"`
	SourceTextHash string      `json:"source_text_hash"`
	SessionID      string      `json:"session_id,omitempty"`
	Status         string      `json:"status"`
}

// Doc renders the record as a generic document for the store.
func (p *PageRecord) Doc() (map[string]any, error) {
	return toDoc(p)
}

// Simplification is one generated (or cached) structured output for a
// (url, mode, language, source_text_hash) tuple. Its id is a deterministic
// hash of the tuple, so concurrent regeneration collapses to one record.
type Simplification struct {
	SimplificationID string         `json:"simplification_id"`
	PageID           string         `json:"page_id"`
	URL              string         `json:"url"`
	SourceTextHash   string         `json:"source_text_hash"`
	Mode             string         `json:"mode"`
	Language         string         `json:"language"`
	Output           map[string]any `json:"output"`
	Model            string         `json:"model"`
	SessionID        string         `json:"session_id,omitempty"`
	Status           string         `json:"status"`
	Error            string         `json:"error,omitempty"`
}

// Doc renders the simplification as a generic document for the store.
func (s *Simplification) Doc() (map[string]any, error) {
	return toDoc(s)
}

func toDoc(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
