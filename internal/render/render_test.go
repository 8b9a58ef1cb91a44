package render

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-networkershome/certificate-generator/internal/editor"
)

func TestSubstitute(t *testing.T) {
	data := editor.NewFieldMap()
	data.Set("participant_name", "Ada & Grace")
	data.Set("course_name", "Go <Fundamentals>")

	tmpl := `<h1>{{ course_name }}</h1><p data-field="participant_name">{{participant_name}}</p><p>{{ unknown_field }}</p>`
	out := Substitute(tmpl, data)

	assert.Contains(t, out, "Go &lt;Fundamentals&gt;")
	assert.Contains(t, out, "Ada &amp; Grace")
	assert.NotContains(t, out, "{{")
	assert.Contains(t, out, "<p></p>")
}

func TestSubstituteIgnoresMalformedPlaceholders(t *testing.T) {
	data := editor.NewFieldMap()
	data.Set("a", "1")

	out := Substitute(`{{ a }} {{ not closed {{ two words }}`, data)
	assert.Equal(t, `1 {{ not closed {{ two words }}`, out)
}

func TestInjectOverridesNoOp(t *testing.T) {
	in := `<html><head></head><body><p>x</p></body></html>`
	out, err := InjectOverrides(in, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestInjectOverridesTagsAndStyles(t *testing.T) {
	in := `<html><head><title>Cert</title></head><body>
		<p data-field="participant_name">Jane Roe</p>
		<p data-field="course_name">Go Fundamentals</p>
	</body></html>`

	positions := []editor.PositionEntry{{ElementID: "participant_name", X: 290.5, Y: 380}}
	styles := []editor.StyleEntry{{ElementID: "course_name", Style: editor.Style{FontSize: "24px", Color: "#003366"}}}

	out, err := InjectOverrides(in, positions, styles)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Find(`[data-editable="participant_name"]`).Length())
	assert.Equal(t, 1, doc.Find(`[data-editable="course_name"]`).Length())

	css := doc.Find("style#editor-overrides")
	require.Equal(t, 1, css.Length())
	text := css.Text()
	assert.Contains(t, text, `[data-editable="participant_name"]`)
	assert.Contains(t, text, "left: 290.5px !important")
	assert.Contains(t, text, "top: 380px !important")
	assert.Contains(t, text, "font-size: 24px !important")
	assert.Contains(t, text, "color: #003366 !important")
}

func TestInjectOverridesResolvesAnonymousElements(t *testing.T) {
	in := `<html><head></head><body>
		<h1>Certificate of Achievement</h1>
		<p data-field="participant_name">Jane Roe</p>
	</body></html>`

	// The heading carries no binding; the editor tagged it element-1 when the
	// preview loaded, so the stored override refers to it by that id.
	positions := []editor.PositionEntry{{ElementID: "element-1", X: 200, Y: 120}}

	out, err := InjectOverrides(in, positions, nil)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find(`h1[data-editable="element-1"]`).Length())

	css := doc.Find("style#editor-overrides").Text()
	assert.Contains(t, css, `[data-editable="element-1"] { position: absolute !important; left: 200px !important; top: 120px !important; }`)
}

func TestInjectOverridesIsIdempotent(t *testing.T) {
	in := `<html><head></head><body><p data-field="participant_name">Jane</p></body></html>`
	positions := []editor.PositionEntry{{ElementID: "participant_name", X: 10, Y: 20}}

	once, err := InjectOverrides(in, positions, nil)
	require.NoError(t, err)
	twice, err := InjectOverrides(once, positions, nil)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(twice))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("style#editor-overrides").Length())
	assert.Equal(t, 1, doc.Find(`[data-editable="participant_name"]`).Length())
}

func TestInjectOverridesUnknownTargetStillEmitsCSS(t *testing.T) {
	in := `<html><head></head><body><p>no bindings</p></body></html>`
	positions := []editor.PositionEntry{{ElementID: "element-3", X: 5, Y: 6}}

	out, err := InjectOverrides(in, positions, nil)
	require.NoError(t, err)

	// The rule is harmless without a matching element and lets the editor
	// re-adopt the id when the element reappears.
	assert.Contains(t, out, `[data-editable="element-3"]`)
}

func TestOverrideCSSSkipsEmptyStyles(t *testing.T) {
	css := OverrideCSS(nil, []editor.StyleEntry{{ElementID: "x"}})
	assert.Empty(t, css)
}
