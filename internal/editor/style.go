package editor

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var styleCSSNames = map[StyleProperty]string{
	StyleFontSize:   "font-size",
	StyleColor:      "color",
	StyleFontWeight: "font-weight",
	StyleTextAlign:  "text-align",
}

// CSSName returns the CSS property name for a style property, or "" when the
// property is unknown.
func (p StyleProperty) CSSName() string {
	return styleCSSNames[p]
}

// CSSDeclarations renders the style's set properties as CSS declarations in a
// fixed order.
func (st Style) CSSDeclarations() []string {
	var out []string
	if st.FontSize != "" {
		out = append(out, "font-size: "+st.FontSize)
	}
	if st.Color != "" {
		out = append(out, "color: "+st.Color)
	}
	if st.FontWeight != "" {
		out = append(out, "font-weight: "+st.FontWeight)
	}
	if st.TextAlign != "" {
		out = append(out, "text-align: "+st.TextAlign)
	}
	return out
}

// setInlineStyle rewrites one declaration inside a node's style attribute,
// preserving unrelated declarations and their order.
func setInlineStyle(sel *goquery.Selection, property, value string) {
	existing := sel.AttrOr("style", "")
	var decls []string
	replaced := false
	for _, decl := range strings.Split(existing, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name := decl
		if idx := strings.Index(decl, ":"); idx >= 0 {
			name = strings.TrimSpace(decl[:idx])
		}
		if strings.EqualFold(name, property) {
			if !replaced {
				decls = append(decls, property+": "+value)
				replaced = true
			}
			continue
		}
		decls = append(decls, decl)
	}
	if !replaced {
		decls = append(decls, property+": "+value)
	}
	sel.SetAttr("style", strings.Join(decls, "; "))
}

// applyPosition pins a node at an absolute canvas-unit position via inline
// styles.
func applyPosition(sel *goquery.Selection, pos Position) {
	setInlineStyle(sel, "position", "absolute")
	setInlineStyle(sel, "left", formatPx(pos.X))
	setInlineStyle(sel, "top", formatPx(pos.Y))
	setInlineStyle(sel, "margin", "0")
}

// applyStyle writes every set property of the override onto the node.
func applyStyle(sel *goquery.Selection, st Style) {
	for _, prop := range []StyleProperty{StyleFontSize, StyleColor, StyleFontWeight, StyleTextAlign} {
		if value := st.value(prop); value != "" {
			setInlineStyle(sel, prop.CSSName(), value)
		}
	}
}

func (st Style) value(prop StyleProperty) string {
	switch prop {
	case StyleFontSize:
		return st.FontSize
	case StyleColor:
		return st.Color
	case StyleFontWeight:
		return st.FontWeight
	case StyleTextAlign:
		return st.TextAlign
	}
	return ""
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
