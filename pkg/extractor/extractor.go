// Package extractor turns a parsed HTML document into page metadata and an
// ordered, bounded sequence of semantic content blocks, plus links and
// images resolved against the page URL.
//
// Order matters: metadata is read from the original document first, because
// noise stripping can detach title/meta ancestors in malformed markup. Only
// then is noise removed and the content root selected.
package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/clearweb/clearweb/models"
)

// Config bounds extraction. Zero values fall back to defaults.
type Config struct {
	MaxBlocks    int // emitted blocks before trimming, default 800
	MaxLinks     int // default 600
	MaxImages    int // default 300
	MaxListItems int // per list, default 200
	MaxTableRows int // default 200
	MaxTableCols int // default 30
	MaxCodeChars int // per code block, default 4000
}

func (c Config) withDefaults() Config {
	if c.MaxBlocks <= 0 {
		c.MaxBlocks = 800
	}
	if c.MaxLinks <= 0 {
		c.MaxLinks = 600
	}
	if c.MaxImages <= 0 {
		c.MaxImages = 300
	}
	if c.MaxListItems <= 0 {
		c.MaxListItems = 200
	}
	if c.MaxTableRows <= 0 {
		c.MaxTableRows = 200
	}
	if c.MaxTableCols <= 0 {
		c.MaxTableCols = 30
	}
	if c.MaxCodeChars <= 0 {
		c.MaxCodeChars = 4000
	}
	return c
}

type Extractor struct {
	cfg Config
}

func New(cfg Config) *Extractor {
	return &Extractor{cfg: cfg.withDefaults()}
}

// Result is everything extracted from one document.
type Result struct {
	Meta   models.PageMeta
	Blocks models.Blocks
	Links  []models.LinkItem
	Images []models.ImageItem
}

// Extract runs the full pipeline: metadata, noise removal, root selection,
// then blocks, links, and images in document order.
func (e *Extractor) Extract(doc *goquery.Document, baseURL string) *Result {
	base, _ := url.Parse(baseURL)

	meta := e.Meta(doc, base)
	RemoveNoise(doc)
	root := SelectRoot(doc)

	return &Result{
		Meta:   meta,
		Blocks: e.Blocks(root),
		Links:  e.Links(root, base),
		Images: e.Images(root, base),
	}
}

// noiseSelector matches tags stripped before block extraction.
const noiseSelector = "script,style,noscript,svg,canvas,iframe,template"

// RemoveNoise strips non-content tags in place.
func RemoveNoise(doc *goquery.Document) {
	doc.Find(noiseSelector).Remove()
}

// SelectRoot picks the content root: main, else article, else body, else
// the whole document. First match wins; no scoring.
func SelectRoot(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"main", "article", "body"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

// Meta extracts title, description, canonical URL, and language tag from
// the original document, falling back to go-readability for the title and
// description and enriching with author/site/lead-image when available.
func (e *Extractor) Meta(doc *goquery.Document, base *url.URL) models.PageMeta {
	meta := models.PageMeta{
		Title: cleanText(doc.Find("title").First().Text()),
	}

	for _, sel := range []string{
		`meta[name="description"]`,
		`meta[property="og:description"]`,
		`meta[name="twitter:description"]`,
	} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if desc := cleanText(content); desc != "" {
				meta.Description = desc
				break
			}
		}
	}

	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok && href != "" {
		meta.Canonical = resolveURL(base, href)
	}

	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		meta.Lang = strings.TrimSpace(lang)
	}

	e.enrichFromReadability(doc, base, &meta)
	return meta
}

// enrichFromReadability fills gaps with go-readability's article metadata.
// Failures are ignored; the primary extraction already stands on its own.
func (e *Extractor) enrichFromReadability(doc *goquery.Document, base *url.URL, meta *models.PageMeta) {
	html, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return
	}
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(html), base)
	if err != nil {
		return
	}
	if meta.Title == "" {
		meta.Title = cleanText(article.Title)
	}
	if meta.Description == "" {
		meta.Description = cleanText(article.Excerpt)
	}
	meta.Author = cleanText(article.Byline)
	meta.SiteName = cleanText(article.SiteName)
	meta.Image = article.Image
}

// blockSelector lists the block-level tags considered content, matched in
// document order.
const blockSelector = "h1,h2,h3,h4,h5,h6,p,ul,ol,table,blockquote,pre,code,hr"

// Blocks walks block-level elements under root in document order and emits
// one Block per element, skipping empties, then collapses consecutive
// duplicates.
func (e *Extractor) Blocks(root *goquery.Selection) models.Blocks {
	var blocks models.Blocks

	root.Find(blockSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(blocks) >= e.cfg.MaxBlocks {
			return false
		}
		if b := e.blockFor(s); b != nil {
			blocks = append(blocks, b)
		}
		return true
	})

	return DedupConsecutive(blocks)
}

func (e *Extractor) blockFor(s *goquery.Selection) models.Block {
	switch tag := goquery.NodeName(s); tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		if text := blockText(s); text != "" {
			return models.Heading{Level: int(tag[1] - '0'), Text: text}
		}
	case "p":
		if text := blockText(s); text != "" {
			return models.Paragraph{Text: text}
		}
	case "ul", "ol":
		if items := e.listItems(s); len(items) > 0 {
			return models.List{
				Depth: s.ParentsFiltered("ul,ol").Length(),
				Items: items,
			}
		}
	case "table":
		headers, rows := e.tableCells(s)
		if len(headers) > 0 || len(rows) > 0 {
			return models.Table{Headers: headers, Rows: rows}
		}
	case "blockquote":
		if text := blockText(s); text != "" {
			return models.Quote{Text: text}
		}
	case "pre":
		if text := codeText(s, e.cfg.MaxCodeChars); text != "" {
			return models.Code{Text: text}
		}
	case "code":
		// Standalone code only; code nested in pre is already covered.
		if s.ParentsFiltered("pre").Length() > 0 {
			return nil
		}
		if text := codeText(s, e.cfg.MaxCodeChars); text != "" {
			return models.Code{Text: text}
		}
	case "hr":
		return models.Rule{}
	}
	return nil
}

func (e *Extractor) listItems(s *goquery.Selection) []string {
	var items []string
	s.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		if len(items) >= e.cfg.MaxListItems {
			return false
		}
		if t := blockText(li); t != "" {
			items = append(items, t)
		}
		return true
	})
	return items
}

func (e *Extractor) tableCells(s *goquery.Selection) ([]string, [][]string) {
	var headers []string
	s.Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		if len(headers) >= e.cfg.MaxTableCols {
			return false
		}
		if t := blockText(th); t != "" {
			headers = append(headers, t)
		}
		return true
	})

	var rows [][]string
	s.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if len(rows) >= e.cfg.MaxTableRows {
			return false
		}
		var row []string
		nonEmpty := false
		tr.Find("td,th").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			if len(row) >= e.cfg.MaxTableCols {
				return false
			}
			t := blockText(cell)
			if t != "" {
				nonEmpty = true
			}
			row = append(row, t)
			return true
		})
		if len(row) > 0 && nonEmpty {
			rows = append(rows, row)
		}
		return true
	})

	return headers, rows
}

// Links extracts anchors under root, resolved to absolute URLs. Mailto,
// tel, javascript, and fragment-only links are dropped; a link is internal
// iff its resolved authority matches the base URL's.
func (e *Extractor) Links(root *goquery.Selection, base *url.URL) []models.LinkItem {
	var links []models.LinkItem
	root.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if len(links) >= e.cfg.MaxLinks {
			return false
		}
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") ||
			strings.HasPrefix(lower, "javascript:") {
			return true
		}
		abs := resolveURL(base, href)
		if abs == "" {
			return true
		}
		links = append(links, models.LinkItem{
			Href:       abs,
			Text:       cleanText(a.Text()),
			IsInternal: isInternal(base, abs),
		})
		return true
	})
	return links
}

// Images extracts img tags under root, honoring common lazy-load src
// attributes, resolved to absolute URLs.
func (e *Extractor) Images(root *goquery.Selection, base *url.URL) []models.ImageItem {
	var images []models.ImageItem
	root.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if len(images) >= e.cfg.MaxImages {
			return false
		}
		src := firstAttr(img, "src", "data-src", "data-lazy-src")
		if src == "" {
			return true
		}
		abs := resolveURL(base, src)
		if abs == "" {
			return true
		}
		alt, _ := img.Attr("alt")
		images = append(images, models.ImageItem{Src: abs, Alt: cleanText(alt)})
		return true
	})
	return images
}

// DedupConsecutive collapses runs of blocks with identical content into a
// single block, preserving order.
func DedupConsecutive(blocks models.Blocks) models.Blocks {
	if len(blocks) == 0 {
		return blocks
	}
	out := make(models.Blocks, 0, len(blocks))
	lastSig := ""
	for _, b := range blocks {
		sig := models.Signature(b)
		if len(out) > 0 && sig == lastSig {
			continue
		}
		out = append(out, b)
		lastSig = sig
	}
	return out
}

// Trim bounds a block sequence in count and in cumulative serialized size.
func Trim(blocks models.Blocks, maxBlocks, maxTotalChars int) models.Blocks {
	if maxBlocks > 0 && len(blocks) > maxBlocks {
		blocks = blocks[:maxBlocks]
	}
	if maxTotalChars <= 0 {
		return blocks
	}
	total := 0
	for i, b := range blocks {
		total += len(models.Signature(b))
		if total > maxTotalChars {
			return blocks[:i]
		}
	}
	return blocks
}

func blockText(s *goquery.Selection) string {
	return cleanText(s.Text())
}

func codeText(s *goquery.Selection, maxChars int) string {
	text := strings.TrimSpace(s.Text())
	if len(text) > maxChars {
		text = text[:maxChars]
	}
	return text
}

// cleanText collapses all whitespace runs to single spaces and trims.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolveURL(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}

func isInternal(base *url.URL, abs string) bool {
	if base == nil {
		return false
	}
	u, err := url.Parse(abs)
	if err != nil {
		return false
	}
	if u.Host == "" {
		return true
	}
	return u.Host == base.Host
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := s.Attr(name); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
