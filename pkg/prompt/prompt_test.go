package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearweb/clearweb/models"
	"github.com/clearweb/clearweb/pkg/llm"
)

func TestImportantLinks(t *testing.T) {
	longLabel := strings.Repeat("label ", 30)
	links := []models.LinkItem{
		{Href: "https://example.com/a", Text: "Apply here"},
		{Href: "mailto:team@example.com", Text: "Mail"},
		{Href: "javascript:void(0)", Text: "JS"},
		{Href: "https://example.com/b", Text: ""},
		{Href: "https://example.com/c", Text: longLabel},
	}
	got := ImportantLinks(links, 20)

	require.Len(t, got, 3)
	assert.Equal(t, Link{Label: "Apply here", URL: "https://example.com/a"}, got[0])
	assert.Equal(t, "https://example.com/b", got[1].Label, "empty label falls back to URL")
	assert.LessOrEqual(t, len(got[2].Label), maxLinkLabel)
}

func TestImportantLinksCap(t *testing.T) {
	var links []models.LinkItem
	for i := 0; i < 40; i++ {
		links = append(links, models.LinkItem{Href: "https://example.com", Text: "x"})
	}
	assert.Len(t, ImportantLinks(links, 20), 20)
}

func TestForMode(t *testing.T) {
	for _, mode := range models.AllModes {
		t.Run(mode, func(t *testing.T) {
			msgs, err := ForMode(mode, "Title", "Some source text.", nil, models.LangEnglish)
			require.NoError(t, err)
			require.Len(t, msgs, 2)

			assert.Equal(t, llm.RoleSystem, msgs[0].Role)
			assert.Contains(t, msgs[0].Content, "Return ONLY valid JSON")
			assert.Contains(t, msgs[0].Content, "DO NOT include the schema")

			assert.Equal(t, llm.RoleUser, msgs[1].Role)
			assert.Contains(t, msgs[1].Content, `"mode":"`+mode+`"`)
			assert.Contains(t, msgs[1].Content, "Some source text.")
		})
	}
}

func TestForModeUnknown(t *testing.T) {
	_, err := ForMode("haiku", "t", "s", nil, models.LangEnglish)
	assert.Error(t, err)
}

func TestLanguageInstruction(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{models.LangEnglish, "English"},
		{models.LangChinese, "Simplified Chinese"},
		{models.LangMalay, "Malay sentence structure"},
		{models.LangTamil, "Tamil script"},
		{"xx", "English"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			got := LanguageInstruction(tt.lang)
			assert.Contains(t, got, tt.want)
			assert.Contains(t, got, "DO NOT translate JSON keys")
		})
	}
}

func TestCorrectiveNamesProblems(t *testing.T) {
	got := Corrective(models.LangChinese, "easy_read missing key: about")
	assert.Contains(t, got, "easy_read missing key: about")
	assert.Contains(t, got, "Simplified Chinese")
}
