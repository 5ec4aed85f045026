package langcheck

import (
	"strings"
	"testing"

	"github.com/clearweb/clearweb/models"
)

func TestHeuristicCheck(t *testing.T) {
	h := NewHeuristic()

	tests := []struct {
		name string
		lang string
		text string
		want bool
	}{
		{"english always passes", models.LangEnglish, "whatever text at all", true},
		{"english passes empty", models.LangEnglish, "", true},

		{"chinese with cjk", models.LangChinese, "本网页用于示例", true},
		{"chinese single cjk char", models.LangChinese, "mostly english 好", true},
		{"chinese zero cjk fails", models.LangChinese, "this page is an example used for documentation", false},
		{"chinese empty fails", models.LangChinese, "", false},

		{"tamil with script", models.LangTamil, "இந்த பக்கம் எடுத்துக்காட்டு", true},
		{"tamil without script fails", models.LangTamil, "this page is an example", false},

		{"malay with markers", models.LangMalay, "Sila semak dokumen ini untuk permohonan anda", true},
		{"malay two marker hits", models.LangMalay, "sila semak please", true},
		{"malay ten english words fails", models.LangMalay,
			"the page is used only for this example about documentation operations", false},
		{"malay long prose few english words", models.LangMalay,
			"halaman web menerangkan cara memohon lesen memandu di negara kita", true},
		{"malay empty fails", models.LangMalay, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Check(tt.lang, tt.text); got != tt.want {
				t.Errorf("Check(%q, %q) = %v, want %v", tt.lang, tt.text, got, tt.want)
			}
		})
	}
}

func TestFlattenText(t *testing.T) {
	obj := map[string]any{
		"about":      "first",
		"key_points": []any{"second", "third"},
		"sections": []any{
			map[string]any{"heading": "fourth", "bullets": []any{"fifth"}},
		},
		"count":  float64(3),
		"nested": map[string]any{"ok": true},
	}
	got := FlattenText(obj)
	for _, want := range []string{"first", "second", "third", "fourth", "fifth"} {
		if !strings.Contains(got, want) {
			t.Errorf("FlattenText() missing %q in %q", want, got)
		}
	}
	if strings.Contains(got, "3") || strings.Contains(got, "true") {
		t.Errorf("FlattenText() should skip non-string scalars: %q", got)
	}
}
