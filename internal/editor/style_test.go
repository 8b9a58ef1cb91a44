package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetInlineStyleMergesDeclarations(t *testing.T) {
	doc := mustLoad(t, `<p style="color: red; font-size: 12px">text</p>`)
	sel := doc.find("p")
	require.Equal(t, 1, sel.Length())

	setInlineStyle(sel, "font-size", "24px")
	assert.Equal(t, "color: red; font-size: 24px", sel.AttrOr("style", ""))

	setInlineStyle(sel, "font-weight", "bold")
	assert.Equal(t, "color: red; font-size: 24px; font-weight: bold", sel.AttrOr("style", ""))
}

func TestSetInlineStyleOnBareNode(t *testing.T) {
	doc := mustLoad(t, `<p>text</p>`)
	sel := doc.find("p")

	setInlineStyle(sel, "text-align", "center")
	assert.Equal(t, "text-align: center", sel.AttrOr("style", ""))
}

func TestApplyPositionPinsNode(t *testing.T) {
	doc := mustLoad(t, `<p style="margin: 10px">text</p>`)
	sel := doc.find("p")

	applyPosition(sel, Position{X: 120.5, Y: 80})

	style := sel.AttrOr("style", "")
	assert.Contains(t, style, "position: absolute")
	assert.Contains(t, style, "left: 120.5px")
	assert.Contains(t, style, "top: 80px")
	assert.Contains(t, style, "margin: 0")
}

func TestStyleMergeAndCSS(t *testing.T) {
	store := newStyleStore()

	require.True(t, store.merge("element-1", StyleFontSize, "18px"))
	require.True(t, store.merge("element-1", StyleColor, "#003366"))
	require.True(t, store.merge("element-1", StyleFontSize, "24px"))
	assert.False(t, store.merge("element-1", StyleProperty("letterSpacing"), "2px"))

	st, ok := store.get("element-1")
	require.True(t, ok)
	assert.Equal(t, Style{FontSize: "24px", Color: "#003366"}, st)

	assert.Equal(t, []string{"font-size: 24px", "color: #003366"}, st.CSSDeclarations())
	assert.Equal(t, 1, store.len())
}

func TestPositionStoreOrderAndOverwrite(t *testing.T) {
	store := newPositionStore()
	store.set("b", Position{X: 1, Y: 1})
	store.set("a", Position{X: 2, Y: 2})
	store.set("b", Position{X: 9, Y: 9})

	entries := store.entries()
	require.Len(t, entries, 2)
	assert.Equal(t, PositionEntry{ElementID: "b", X: 9, Y: 9}, entries[0])
	assert.Equal(t, PositionEntry{ElementID: "a", X: 2, Y: 2}, entries[1])
}
