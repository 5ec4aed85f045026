package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Block is a semantic content block extracted from a page. Exactly one
// concrete type exists per block kind; consumers switch on the concrete
// type so a new kind is a compile-visible addition at every call site.
type Block interface {
	// Kind returns the wire discriminator ("heading", "paragraph", ...).
	Kind() string
}

type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

type Paragraph struct {
	Text string `json:"text"`
}

type List struct {
	Depth int      `json:"depth"`
	Items []string `json:"items"`
}

type Table struct {
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
}

type Quote struct {
	Text string `json:"text"`
}

type Code struct {
	Text string `json:"text"`
}

// Rule is a thematic break (<hr>).
type Rule struct{}

func (Heading) Kind() string   { return "heading" }
func (Paragraph) Kind() string { return "paragraph" }
func (List) Kind() string      { return "list" }
func (Table) Kind() string     { return "table" }
func (Quote) Kind() string     { return "quote" }
func (Code) Kind() string      { return "code" }
func (Rule) Kind() string      { return "hr" }

// blockWire is the flat JSON shape shared by all block kinds.
type blockWire struct {
	Type    string     `json:"type"`
	Level   int        `json:"level,omitempty"`
	Depth   int        `json:"depth,omitempty"`
	Text    string     `json:"text,omitempty"`
	Items   []string   `json:"items,omitempty"`
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
}

// Blocks is an ordered block sequence with tagged-union JSON encoding.
type Blocks []Block

func (bs Blocks) MarshalJSON() ([]byte, error) {
	wire := make([]blockWire, 0, len(bs))
	for _, b := range bs {
		switch v := b.(type) {
		case Heading:
			wire = append(wire, blockWire{Type: v.Kind(), Level: v.Level, Text: v.Text})
		case Paragraph:
			wire = append(wire, blockWire{Type: v.Kind(), Text: v.Text})
		case List:
			wire = append(wire, blockWire{Type: v.Kind(), Depth: v.Depth, Items: v.Items})
		case Table:
			wire = append(wire, blockWire{Type: v.Kind(), Headers: v.Headers, Rows: v.Rows})
		case Quote:
			wire = append(wire, blockWire{Type: v.Kind(), Text: v.Text})
		case Code:
			wire = append(wire, blockWire{Type: v.Kind(), Text: v.Text})
		case Rule:
			wire = append(wire, blockWire{Type: v.Kind()})
		default:
			return nil, fmt.Errorf("unknown block kind %T", b)
		}
	}
	return json.Marshal(wire)
}

func (bs *Blocks) UnmarshalJSON(data []byte) error {
	var wire []blockWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := make(Blocks, 0, len(wire))
	for _, w := range wire {
		switch w.Type {
		case "heading":
			out = append(out, Heading{Level: w.Level, Text: w.Text})
		case "paragraph":
			out = append(out, Paragraph{Text: w.Text})
		case "list":
			out = append(out, List{Depth: w.Depth, Items: w.Items})
		case "table":
			out = append(out, Table{Headers: w.Headers, Rows: w.Rows})
		case "quote":
			out = append(out, Quote{Text: w.Text})
		case "code":
			out = append(out, Code{Text: w.Text})
		case "hr":
			out = append(out, Rule{})
		default:
			return fmt.Errorf("unknown block type %q", w.Type)
		}
	}
	*bs = out
	return nil
}

// Signature returns a string identifying a block's content, used for
// collapsing consecutive duplicates.
func Signature(b Block) string {
	switch v := b.(type) {
	case Heading:
		return fmt.Sprintf("heading|%d|%s", v.Level, v.Text)
	case Paragraph:
		return "paragraph|" + v.Text
	case List:
		return fmt.Sprintf("list|%d|%s", v.Depth, strings.Join(v.Items, "\x1f"))
	case Table:
		var sb strings.Builder
		sb.WriteString("table|")
		sb.WriteString(strings.Join(v.Headers, "\x1f"))
		for _, row := range v.Rows {
			sb.WriteString("\x1e")
			sb.WriteString(strings.Join(row, "\x1f"))
		}
		return sb.String()
	case Quote:
		return "quote|" + v.Text
	case Code:
		return "code|" + v.Text
	case Rule:
		return "hr"
	}
	return ""
}
