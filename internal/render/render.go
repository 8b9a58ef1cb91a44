// Package render turns stored certificate templates into preview and
// print-ready HTML: placeholder substitution, plus injection of the editor's
// position and style overrides as a CSS block the editable elements can be
// matched against.
package render

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/code-networkershome/certificate-generator/internal/editor"
)

// overrideStyleID identifies the injected CSS block so repeated injection
// replaces rather than stacks.
const overrideStyleID = "editor-overrides"

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Substitute replaces {{ field }} placeholders with HTML-escaped values from
// the data map. Placeholders without a matching field render empty.
func Substitute(templateHTML string, data *editor.FieldMap) string {
	return placeholderPattern.ReplaceAllStringFunc(templateHTML, func(match string) string {
		field := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := data.Get(field)
		if !ok {
			return ""
		}
		return html.EscapeString(value)
	})
}

// InjectOverrides stamps editable elements with data-editable attributes and
// appends a CSS block translating the stored positions and styles into
// absolute placement rules. The document is tagged with the same in-order
// pass the editor runs on load, so field-bound ids and anonymous element-N
// ids both resolve to the nodes they were recorded against. Returns the
// input unchanged when there are no overrides.
func InjectOverrides(docHTML string, positions []editor.PositionEntry, styles []editor.StyleEntry) (string, error) {
	if len(positions) == 0 && len(styles) == 0 {
		return docHTML, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(docHTML))
	if err != nil {
		return "", fmt.Errorf("render: parse document: %w", err)
	}

	editor.TagEditableElements(doc)
	for _, id := range overrideTargets(positions, styles) {
		tagTarget(doc, id)
	}

	doc.Find("style#" + overrideStyleID).Remove()
	head := doc.Find("head")
	if head.Length() == 0 {
		head = doc.Selection
	}
	head.AppendHtml(fmt.Sprintf("<style id=%q>\n%s</style>", overrideStyleID, OverrideCSS(positions, styles)))

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("render: serialise document: %w", err)
	}
	return out, nil
}

// OverrideCSS renders the override entries as CSS rules targeting
// data-editable ids. Position rules pin elements absolutely in canvas units;
// style rules carry the cosmetic properties. Everything is !important so the
// overrides beat template styling.
func OverrideCSS(positions []editor.PositionEntry, styles []editor.StyleEntry) string {
	var b strings.Builder
	for _, pos := range positions {
		fmt.Fprintf(&b, "[data-editable=%q] { position: absolute !important; left: %spx !important; top: %spx !important; }\n",
			pos.ElementID, formatCoord(pos.X), formatCoord(pos.Y))
	}
	for _, st := range styles {
		decls := st.CSSDeclarations()
		if len(decls) == 0 {
			continue
		}
		fmt.Fprintf(&b, "[data-editable=%q] { %s !important; }\n",
			st.ElementID, strings.Join(decls, " !important; "))
	}
	return b.String()
}

func overrideTargets(positions []editor.PositionEntry, styles []editor.StyleEntry) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, pos := range positions {
		add(pos.ElementID)
	}
	for _, st := range styles {
		add(st.ElementID)
	}
	return ids
}

// tagTarget covers field-bound elements the tagging pass does not reach,
// such as data-field attributes on tags outside the editable set. An element
// already carrying the id is left alone.
func tagTarget(doc *goquery.Document, id string) {
	if doc.Find(fmt.Sprintf(`[data-editable=%q]`, id)).Length() > 0 {
		return
	}
	target := doc.Find(fmt.Sprintf(`[data-field=%q]`, id)).First()
	if target.Length() == 0 {
		return
	}
	target.SetAttr("data-editable", id)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
