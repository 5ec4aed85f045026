package linearize

import (
	"strings"
	"testing"

	"github.com/clearweb/clearweb/models"
)

func TestTextRendering(t *testing.T) {
	blocks := models.Blocks{
		models.Heading{Level: 1, Text: "Title"},
		models.Paragraph{Text: "A paragraph."},
		models.Heading{Level: 9, Text: "Deep"},
		models.Heading{Level: 0, Text: "Shallow"},
		models.Quote{Text: "A quote."},
		models.List{Items: []string{"one", "two"}},
		models.Table{Headers: []string{"Name", "Value"}, Rows: [][]string{{"a", "1"}}},
		models.Table{Rows: [][]string{{"no", "headers"}}},
		models.Code{Text: "ignored()"},
		models.Rule{},
	}

	want := strings.Join([]string{
		"# Title",
		"A paragraph.",
		"###### Deep",
		"# Shallow",
		"> A quote.",
		"- one",
		"- two",
		"Table: Name | Value",
	}, "\n")

	got := Text(blocks, 0)
	if got != want {
		t.Errorf("Text() =\n%s\nwant\n%s", got, want)
	}
}

func TestTextDeterministic(t *testing.T) {
	blocks := models.Blocks{
		models.Heading{Level: 2, Text: "Section"},
		models.Paragraph{Text: "Body text."},
		models.List{Items: []string{"x", "y", "z"}},
	}
	first := Text(blocks, 1000)
	for i := 0; i < 10; i++ {
		if got := Text(blocks, 1000); got != first {
			t.Fatalf("run %d differs:\n%s\nvs\n%s", i, got, first)
		}
	}
}

func TestTextBudget(t *testing.T) {
	var blocks models.Blocks
	for i := 0; i < 100; i++ {
		blocks = append(blocks, models.Paragraph{Text: strings.Repeat("a", 50)})
	}
	got := Text(blocks, 200)
	if len(got) > 200 {
		t.Errorf("len(Text()) = %d, want <= 200", len(got))
	}
	if got == "" {
		t.Error("Text() should keep content up to the budget")
	}
}

func TestTextListItemCap(t *testing.T) {
	items := make([]string, 30)
	for i := range items {
		items[i] = "item"
	}
	got := Text(models.Blocks{models.List{Items: items}}, 0)
	if n := strings.Count(got, "- item"); n != maxListItemsRendered {
		t.Errorf("rendered %d list items, want %d", n, maxListItemsRendered)
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	s := strings.Repeat("中", 10) // 3 bytes each
	got := truncate(s, 10)
	if len(got) != 9 {
		t.Errorf("truncate kept %d bytes, want 9 (rune boundary)", len(got))
	}
	for _, r := range got {
		if r != '中' {
			t.Fatalf("truncate corrupted runes: %q", got)
		}
	}
}
