package editor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// previewPolicy strips active content from preview documents before they are
// hosted. Scripts, event handlers, and framing elements are removed; layout
// markup, inline styles, and the editor's data attributes survive.
var previewPolicy = newPreviewPolicy()

func newPreviewPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("html", "head", "body", "title", "style", "header", "footer", "section", "article", "main", "figure", "figcaption", "span", "div")
	p.AllowAttrs("style", "class", "id").Globally()
	p.AllowAttrs(attrEditable, attrField).Globally()
	p.AllowImages()
	p.AllowDataURIImages()
	p.AllowStyling()
	return p
}

// Document hosts one sanitised preview snapshot as a mutable node tree.
type Document struct {
	doc *goquery.Document
}

// loadDocument sanitises and parses a preview payload. Parsing is lenient in
// the usual HTML5 way, so errors only surface for truly unreadable input.
func loadDocument(payload string) (*Document, error) {
	sanitised := previewPolicy.Sanitize(payload)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitised))
	if err != nil {
		return nil, fmt.Errorf("editor: parse preview document: %w", err)
	}
	return &Document{doc: doc}, nil
}

// HTML renders the current document tree, including any live mutations made
// through the session.
func (d *Document) HTML() (string, error) {
	out, err := d.doc.Html()
	if err != nil {
		return "", fmt.Errorf("editor: serialise document: %w", err)
	}
	return out, nil
}

func (d *Document) find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}
