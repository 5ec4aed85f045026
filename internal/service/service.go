// Package service orchestrates the scrape, simplify, and chat flows on
// top of the fetcher, extractor, generator, and document store.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/oklog/ulid/v2"

	"github.com/clearweb/clearweb/internal/apperr"
	"github.com/clearweb/clearweb/models"
	"github.com/clearweb/clearweb/pkg/extractor"
	"github.com/clearweb/clearweb/pkg/fingerprint"
	"github.com/clearweb/clearweb/pkg/linearize"
	"github.com/clearweb/clearweb/pkg/llm"
	"github.com/clearweb/clearweb/pkg/prompt"
	"github.com/clearweb/clearweb/pkg/simplify"
	"github.com/clearweb/clearweb/pkg/store"
)

// Bounds on what a single page contributes to storage and prompts.
const (
	maxStoredBlocks  = 200
	maxStoredChars   = 80000
	maxStoredLinks   = 40
	maxStoredImages  = 20
	maxPromptLinks   = 20
	historyWindow    = 6
	chatTemperature  = 0.2
	plainTemperature = 0.7
)

// Fetcher downloads a page into a parsed document.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*goquery.Document, error)
}

// Generator produces one validated simplification output for a mode.
type Generator interface {
	Generate(ctx context.Context, mode, title, sourceText string, links []prompt.Link, language string) (map[string]any, string, error)
}

// Service wires the pipeline together.
type Service struct {
	fetcher   Fetcher
	extractor *extractor.Extractor
	generator Generator
	completer simplify.Completer
	store     store.Store
	logger    *slog.Logger
}

func New(fetcher Fetcher, ext *extractor.Extractor, gen Generator, completer simplify.Completer, st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher:   fetcher,
		extractor: ext,
		generator: gen,
		completer: completer,
		store:     st,
		logger:    logger,
	}
}

// Scrape downloads and extracts a page, persisting the snapshot.
func (s *Service) Scrape(ctx context.Context, req models.ScrapRequest) (*models.ScrapResponse, error) {
	record, err := s.scrapePage(ctx, req.URL, newSessionID(""))
	if err != nil {
		return nil, err
	}
	return &models.ScrapResponse{
		OK:     true,
		URL:    record.URL,
		Meta:   record.Meta,
		Blocks: record.Blocks,
		Links:  record.Links,
		Images: record.Images,
	}, nil
}

// scrapePage runs the full extraction pipeline for one URL. The persisted
// record is best-effort: a store failure is logged and the in-memory
// record is still returned.
func (s *Service) scrapePage(ctx context.Context, rawURL, sessionID string) (*models.PageRecord, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	doc, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	res := s.extractor.Extract(doc, rawURL)
	blocks := extractor.Trim(res.Blocks, maxStoredBlocks, maxStoredChars)
	sourceText := linearize.Text(blocks, linearize.DefaultBudget)

	record := &models.PageRecord{
		PageID:         fingerprint.PageID(rawURL),
		URL:            rawURL,
		Meta:           res.Meta,
		Blocks:         blocks,
		Links:          capLinks(res.Links, maxStoredLinks),
		Images:         capImages(res.Images, maxStoredImages),
		SourceText:     sourceText,
		SourceTextHash: fingerprint.SourceTextHash(sourceText),
		SessionID:      sessionID,
		Status:         models.PageStatusReady,
	}

	if doc, err := record.Doc(); err != nil {
		s.logger.Warn("page record encode failed", "url", rawURL, "error", err)
	} else if err := s.store.Upsert(ctx, store.Pages, record.PageID, doc); err != nil {
		s.logger.Warn("page record persist failed", "url", rawURL, "error", err)
	}

	return record, nil
}

// Simplify scrapes a page and returns one validated output per requested
// mode, reusing cached results keyed by the deterministic id.
func (s *Service) Simplify(ctx context.Context, req models.SimplifyRequest) (*models.SimplifyResponse, error) {
	mode := defaultString(req.Mode, models.ModeEasyRead)
	language := defaultString(req.Language, models.LangEnglish)
	if !models.ValidMode(mode) {
		return nil, apperr.InvalidRequest(fmt.Sprintf("unsupported mode %q", mode))
	}
	if !models.ValidLanguage(language) {
		return nil, apperr.InvalidRequest(fmt.Sprintf("unsupported language %q", language))
	}
	sessionID := newSessionID(req.SessionID)

	record, err := s.scrapePage(ctx, req.URL, sessionID)
	if err != nil {
		return nil, err
	}

	modes := []string{mode}
	if mode == models.ModeAll {
		modes = models.AllModes
	}

	resp := &models.SimplifyResponse{
		OK:                true,
		URL:               record.URL,
		PageID:            record.PageID,
		SourceTextHash:    record.SourceTextHash,
		Language:          language,
		Outputs:           make(map[string]map[string]any, len(modes)),
		SimplificationIDs: make(map[string]string, len(modes)),
	}

	for _, m := range modes {
		simp, err := s.resolveSimplification(ctx, record, m, language, sessionID, req.ForceRegen)
		if err != nil {
			return nil, err
		}
		resp.Outputs[m] = simp.Output
		resp.SimplificationIDs[m] = simp.SimplificationID
		resp.Model = simp.Model
	}

	return resp, nil
}

// resolveSimplification returns the cached output for (url, mode,
// language, hash), generating and persisting one when absent or when the
// caller forces regeneration.
func (s *Service) resolveSimplification(ctx context.Context, record *models.PageRecord, mode, language, sessionID string, forceRegen bool) (*models.Simplification, error) {
	id := fingerprint.SimplificationID(record.URL, mode, language, record.SourceTextHash)

	if !forceRegen {
		doc, err := s.store.Get(ctx, store.Simplifications, id)
		if err == nil {
			simp, decodeErr := simplificationFromDoc(doc)
			if decodeErr == nil {
				return simp, nil
			}
			s.logger.Warn("cached simplification decode failed", "id", id, "error", decodeErr)
		} else if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("simplification cache read failed", "id", id, "error", err)
		}
	}

	links := prompt.ImportantLinks(record.Links, maxPromptLinks)
	output, model, err := s.generator.Generate(ctx, mode, record.Meta.Title, record.SourceText, links, language)
	if err != nil {
		if errors.Is(err, llm.ErrNoProvider) {
			return nil, apperr.New(apperr.CodeInternal, 500, "no language model configured", err)
		}
		return nil, apperr.Internal(err)
	}

	simp := &models.Simplification{
		SimplificationID: id,
		PageID:           record.PageID,
		URL:              record.URL,
		SourceTextHash:   record.SourceTextHash,
		Mode:             mode,
		Language:         language,
		Output:           output,
		Model:            model,
		SessionID:        sessionID,
		Status:           models.PageStatusReady,
	}
	if simplify.Degraded(output) {
		simp.Status = "degraded"
		simp.Error, _ = output["error"].(string)
	}

	if doc, err := simp.Doc(); err != nil {
		s.logger.Warn("simplification encode failed", "id", id, "error", err)
	} else if err := s.store.Upsert(ctx, store.Simplifications, id, doc); err != nil {
		s.logger.Warn("simplification persist failed", "id", id, "error", err)
	}

	return simp, nil
}

// Chat answers a follow-up question grounded in a page and its cached
// simplification.
func (s *Service) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	if req.Message == "" {
		return nil, apperr.InvalidRequest("message is required")
	}
	mode := defaultString(req.Mode, models.ModeEasyRead)
	language := defaultString(req.Language, models.LangEnglish)
	if mode == models.ModeAll || !models.ValidMode(mode) {
		return nil, apperr.InvalidRequest(fmt.Sprintf("chat requires a single mode, got %q", mode))
	}
	if !models.ValidLanguage(language) {
		return nil, apperr.InvalidRequest(fmt.Sprintf("unsupported language %q", language))
	}
	sessionID := newSessionID(req.SessionID)

	record, err := s.resolvePage(ctx, req, sessionID)
	if err != nil {
		return nil, err
	}

	simp, err := s.chatSimplification(ctx, record, req, mode, language, sessionID)
	if err != nil {
		return nil, err
	}

	chatCtx := simplify.SelectContext(record.SourceText, simp.Output, mode, language, req.SectionID, req.SectionText)
	ctxJSON, err := json.Marshal(chatCtx)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: prompt.ChatSystem(language)}}
	for _, m := range lastN(req.History, historyWindow) {
		role := llm.RoleUser
		if m.Role == "assistant" {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: "CONTEXT:\n" + string(ctxJSON) + "\n\nQUESTION: " + req.Message,
	})

	answer, model, err := s.completer.Complete(ctx, messages, chatTemperature)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &models.ChatResponse{
		OK:               true,
		Model:            model,
		Answer:           answer,
		PageID:           record.PageID,
		SimplificationID: simp.SimplificationID,
	}, nil
}

// resolvePage loads the page record for a chat request. A URL is
// authoritative: absent from the store means scrape it now. A bare
// page_id with no URL cannot be recovered and yields not-found.
func (s *Service) resolvePage(ctx context.Context, req models.ChatRequest, sessionID string) (*models.PageRecord, error) {
	switch {
	case req.URL != "":
		pageID := fingerprint.PageID(req.URL)
		doc, err := s.store.Get(ctx, store.Pages, pageID)
		if err == nil {
			record, decodeErr := pageFromDoc(doc)
			if decodeErr == nil {
				return record, nil
			}
			s.logger.Warn("cached page decode failed", "page_id", pageID, "error", decodeErr)
		} else if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("page cache read failed", "page_id", pageID, "error", err)
		}
		return s.scrapePage(ctx, req.URL, sessionID)

	case req.PageID != "":
		doc, err := s.store.Get(ctx, store.Pages, req.PageID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("page not found")
		}
		if err != nil {
			return nil, apperr.Internal(err)
		}
		record, err := pageFromDoc(doc)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		return record, nil

	default:
		return nil, apperr.InvalidRequest("url or page_id is required")
	}
}

// chatSimplification resolves in priority order: the explicitly named
// simplification, the cache entry for the request tuple, then on-demand
// generation.
func (s *Service) chatSimplification(ctx context.Context, record *models.PageRecord, req models.ChatRequest, mode, language, sessionID string) (*models.Simplification, error) {
	if req.SimplificationID != "" {
		doc, err := s.store.Get(ctx, store.Simplifications, req.SimplificationID)
		if err == nil {
			simp, decodeErr := simplificationFromDoc(doc)
			if decodeErr == nil {
				return simp, nil
			}
			s.logger.Warn("cached simplification decode failed", "id", req.SimplificationID, "error", decodeErr)
		} else if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("simplification cache read failed", "id", req.SimplificationID, "error", err)
		}
	}
	return s.resolveSimplification(ctx, record, mode, language, sessionID, false)
}

// TextCompletion is a single-shot passthrough to the model: either a bare
// text prompt or a full message list.
func (s *Service) TextCompletion(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
	var messages []llm.Message
	switch {
	case len(req.Messages) > 0:
		for _, m := range req.Messages {
			role := llm.RoleUser
			switch m.Role {
			case "assistant":
				role = llm.RoleAssistant
			case "system":
				role = llm.RoleSystem
			}
			messages = append(messages, llm.Message{Role: role, Content: m.Content})
		}
	case req.Text != "":
		messages = []llm.Message{{Role: llm.RoleUser, Content: req.Text}}
	default:
		return nil, apperr.InvalidRequest("text or messages is required")
	}

	temperature := plainTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	text, model, err := s.completer.Complete(ctx, messages, temperature)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &models.CompletionResponse{OK: true, Model: model, Response: text}, nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return apperr.InvalidRequest("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperr.InvalidRequest(fmt.Sprintf("invalid url %q", rawURL))
	}
	return nil
}

func newSessionID(supplied string) string {
	if supplied != "" {
		return supplied
	}
	return ulid.Make().String()
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func capLinks(links []models.LinkItem, max int) []models.LinkItem {
	if len(links) > max {
		return links[:max]
	}
	return links
}

func capImages(images []models.ImageItem, max int) []models.ImageItem {
	if len(images) > max {
		return images[:max]
	}
	return images
}

func lastN(history []models.ChatMessage, n int) []models.ChatMessage {
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

func pageFromDoc(doc map[string]any) (*models.PageRecord, error) {
	var record models.PageRecord
	if err := fromDoc(doc, &record); err != nil {
		return nil, err
	}
	if record.PageID == "" || record.URL == "" {
		return nil, errors.New("incomplete page record")
	}
	return &record, nil
}

func simplificationFromDoc(doc map[string]any) (*models.Simplification, error) {
	var simp models.Simplification
	if err := fromDoc(doc, &simp); err != nil {
		return nil, err
	}
	if simp.SimplificationID == "" || simp.Output == nil {
		return nil, errors.New("incomplete simplification")
	}
	return &simp, nil
}

func fromDoc(doc map[string]any, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
