package service

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearweb/clearweb/internal/apperr"
	"github.com/clearweb/clearweb/models"
	"github.com/clearweb/clearweb/pkg/extractor"
	"github.com/clearweb/clearweb/pkg/fingerprint"
	"github.com/clearweb/clearweb/pkg/llm"
	"github.com/clearweb/clearweb/pkg/prompt"
	"github.com/clearweb/clearweb/pkg/store"
)

const fixtureHTML = `<!doctype html>
<html lang="en">
<head><title>Renew Your Passport</title></head>
<body>
<main>
  <h1>Renew Your Passport</h1>
  <p>Apply online at least two weeks before travel.</p>
</main>
</body>
</html>`

type fakeFetcher struct {
	html string
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(f.html))
}

type countingGenerator struct {
	calls int
}

func (g *countingGenerator) Generate(ctx context.Context, mode, title, sourceText string, links []prompt.Link, language string) (map[string]any, string, error) {
	g.calls++
	return map[string]any{
		"mode":  mode,
		"title": title,
		"sections": []any{
			map[string]any{"heading": "Overview", "bullets": []any{"one"}},
		},
	}, "fake-model", nil
}

type fakeCompleter struct {
	calls    int
	messages []llm.Message
}

func (c *fakeCompleter) Complete(ctx context.Context, messages []llm.Message, temperature float64) (string, string, error) {
	c.calls++
	c.messages = messages
	return "a short answer", "fake-model", nil
}

func (c *fakeCompleter) Model() string { return "fake-model" }

func newTestService(t *testing.T, gen *countingGenerator, completer *fakeCompleter) (*Service, store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	svc := New(&fakeFetcher{html: fixtureHTML}, extractor.New(extractor.Config{}), gen, completer, st, logger)
	return svc, st
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func TestScrapeExtractsAndPersists(t *testing.T) {
	svc, st := newTestService(t, &countingGenerator{}, &fakeCompleter{})

	resp, err := svc.Scrape(context.Background(), models.ScrapRequest{URL: "https://example.com/passport"})
	require.NoError(t, err)

	assert.True(t, resp.OK)
	assert.Equal(t, "Renew Your Passport", resp.Meta.Title)
	require.Len(t, resp.Blocks, 2)
	assert.Equal(t, "heading", resp.Blocks[0].Kind())
	assert.Equal(t, "paragraph", resp.Blocks[1].Kind())

	pageID := fingerprint.PageID("https://example.com/passport")
	doc, err := st.Get(context.Background(), store.Pages, pageID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/passport", doc["url"])
	assert.Equal(t, models.PageStatusReady, doc["status"])
	assert.NotEmpty(t, doc["source_text"])
	assert.NotEmpty(t, doc["source_text_hash"])
}

func TestScrapeRejectsBadURL(t *testing.T) {
	svc, _ := newTestService(t, &countingGenerator{}, &fakeCompleter{})

	for _, raw := range []string{"", "ftp://example.com/x", "not a url", "/relative/path"} {
		_, err := svc.Scrape(context.Background(), models.ScrapRequest{URL: raw})
		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr, "url %q", raw)
		assert.Equal(t, 400, appErr.Status)
	}
}

func TestSimplifySecondCallHitsCache(t *testing.T) {
	gen := &countingGenerator{}
	svc, _ := newTestService(t, gen, &fakeCompleter{})

	req := models.SimplifyRequest{URL: "https://example.com/passport", Mode: models.ModeEasyRead, Language: models.LangEnglish}

	first, err := svc.Simplify(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)

	second, err := svc.Simplify(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls, "cache hit must not regenerate")

	assert.Equal(t, first.SimplificationIDs, second.SimplificationIDs)
	assert.Equal(t, first.Outputs, second.Outputs)

	wantID := fingerprint.SimplificationID("https://example.com/passport", models.ModeEasyRead, models.LangEnglish, first.SourceTextHash)
	assert.Equal(t, wantID, first.SimplificationIDs[models.ModeEasyRead])
}

func TestSimplifyForceRegen(t *testing.T) {
	gen := &countingGenerator{}
	svc, _ := newTestService(t, gen, &fakeCompleter{})

	req := models.SimplifyRequest{URL: "https://example.com/passport", Mode: models.ModeChecklist, Language: models.LangEnglish}

	_, err := svc.Simplify(context.Background(), req)
	require.NoError(t, err)

	req.ForceRegen = true
	_, err = svc.Simplify(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls)
}

func TestSimplifyAllFansOut(t *testing.T) {
	gen := &countingGenerator{}
	svc, _ := newTestService(t, gen, &fakeCompleter{})

	resp, err := svc.Simplify(context.Background(), models.SimplifyRequest{
		URL: "https://example.com/passport", Mode: models.ModeAll, Language: models.LangEnglish,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, gen.calls)
	assert.Len(t, resp.Outputs, 3)
	assert.Len(t, resp.SimplificationIDs, 3)
	for _, mode := range models.AllModes {
		assert.Contains(t, resp.Outputs, mode)
		assert.Equal(t, mode, resp.Outputs[mode]["mode"])
	}
}

func TestSimplifyRejectsUnknownModeAndLanguage(t *testing.T) {
	svc, _ := newTestService(t, &countingGenerator{}, &fakeCompleter{})

	_, err := svc.Simplify(context.Background(), models.SimplifyRequest{URL: "https://example.com/x", Mode: "haiku"})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Status)

	_, err = svc.Simplify(context.Background(), models.SimplifyRequest{URL: "https://example.com/x", Language: "fr"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Status)
}

func TestChatReusesCachedSimplification(t *testing.T) {
	gen := &countingGenerator{}
	completer := &fakeCompleter{}
	svc, _ := newTestService(t, gen, completer)

	_, err := svc.Simplify(context.Background(), models.SimplifyRequest{
		URL: "https://example.com/passport", Mode: models.ModeEasyRead, Language: models.LangEnglish,
	})
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)

	resp, err := svc.Chat(context.Background(), models.ChatRequest{
		URL:      "https://example.com/passport",
		Mode:     models.ModeEasyRead,
		Language: models.LangEnglish,
		Message:  "How early should I apply?",
		History: []models.ChatMessage{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls, "chat must reuse the cached simplification")
	assert.Equal(t, 1, completer.calls)
	assert.True(t, resp.OK)
	assert.Equal(t, "a short answer", resp.Answer)
	assert.Equal(t, fingerprint.PageID("https://example.com/passport"), resp.PageID)
	assert.NotEmpty(t, resp.SimplificationID)

	require.NotEmpty(t, completer.messages)
	assert.Equal(t, llm.RoleSystem, completer.messages[0].Role)
	last := completer.messages[len(completer.messages)-1]
	assert.Contains(t, last.Content, "CONTEXT:")
	assert.Contains(t, last.Content, "How early should I apply?")
	// history window sits between system and final user message
	assert.Len(t, completer.messages, 4)
}

func TestChatGeneratesWhenNoCache(t *testing.T) {
	gen := &countingGenerator{}
	svc, _ := newTestService(t, gen, &fakeCompleter{})

	resp, err := svc.Chat(context.Background(), models.ChatRequest{
		URL:     "https://example.com/fresh",
		Message: "what is this page about?",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls)
	assert.True(t, resp.OK)
}

func TestChatMissingPageID(t *testing.T) {
	svc, _ := newTestService(t, &countingGenerator{}, &fakeCompleter{})

	_, err := svc.Chat(context.Background(), models.ChatRequest{
		PageID:  "0000000000000000000000000000000000000000000000000000000000000000",
		Message: "hello?",
	})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Status)
}

func TestChatRejectsModeAllAndEmptyMessage(t *testing.T) {
	svc, _ := newTestService(t, &countingGenerator{}, &fakeCompleter{})

	var appErr *apperr.Error

	_, err := svc.Chat(context.Background(), models.ChatRequest{URL: "https://example.com/x", Mode: models.ModeAll, Message: "hi"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Status)

	_, err = svc.Chat(context.Background(), models.ChatRequest{URL: "https://example.com/x"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Status)
}

func TestChatHistoryWindow(t *testing.T) {
	completer := &fakeCompleter{}
	svc, _ := newTestService(t, &countingGenerator{}, completer)

	history := make([]models.ChatMessage, 10)
	for i := range history {
		history[i] = models.ChatMessage{Role: "user", Content: strings.Repeat("x", i+1)}
	}

	_, err := svc.Chat(context.Background(), models.ChatRequest{
		URL:     "https://example.com/passport",
		Message: "question",
		History: history,
	})
	require.NoError(t, err)

	// system + 6 history + final user message
	require.Len(t, completer.messages, 8)
	assert.Equal(t, strings.Repeat("x", 5), completer.messages[1].Content)
}

func TestTextCompletion(t *testing.T) {
	completer := &fakeCompleter{}
	svc, _ := newTestService(t, &countingGenerator{}, completer)

	resp, err := svc.TextCompletion(context.Background(), models.CompletionRequest{Text: "say hi"})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "a short answer", resp.Response)
	require.Len(t, completer.messages, 1)
	assert.Equal(t, llm.RoleUser, completer.messages[0].Role)

	_, err = svc.TextCompletion(context.Background(), models.CompletionRequest{
		Messages: []models.ChatMessage{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "say hi"},
		},
	})
	require.NoError(t, err)
	require.Len(t, completer.messages, 2)
	assert.Equal(t, llm.RoleSystem, completer.messages[0].Role)

	_, err = svc.TextCompletion(context.Background(), models.CompletionRequest{})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Status)
}
