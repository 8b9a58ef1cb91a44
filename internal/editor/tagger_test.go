package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, payload string) *Document {
	t.Helper()
	doc, err := loadDocument(payload)
	require.NoError(t, err)
	return doc
}

func TestTagEditableNodesFieldBinding(t *testing.T) {
	doc := mustLoad(t, `<div class="cert">
		<h1>Certificate of Achievement</h1>
		<p data-field="participant_name">John Doe</p>
		<p data-field="course_name">Go Fundamentals</p>
		<p>Awarded for outstanding work</p>
	</div>`)

	handles, order := tagEditableNodes(doc)

	require.Equal(t, []ElementID{"element-1", "participant_name", "course_name", "element-2"}, order)

	name := handles["participant_name"]
	require.NotNil(t, name)
	assert.Equal(t, "participant_name", name.DataField)
	assert.Equal(t, "John Doe", name.Text())

	anon := handles["element-2"]
	require.NotNil(t, anon)
	assert.Empty(t, anon.DataField)
	assert.Equal(t, "Awarded for outstanding work", anon.Text())
}

func TestTagEditableNodesSkipsContainers(t *testing.T) {
	doc := mustLoad(t, `<div id="wrap">
		<p>one</p>
		<p>two</p>
		<p>three</p>
		<p>four</p>
	</div>`)

	handles, order := tagEditableNodes(doc)

	// The wrapping div has too many children to be editable text.
	assert.Len(t, order, 4)
	for _, h := range handles {
		assert.NotEqual(t, "wrap", h.sel.AttrOr("id", ""))
	}
}

func TestTagEditableNodesSkipsEmptyText(t *testing.T) {
	doc := mustLoad(t, `<div><p>   </p><p>kept</p></div>`)

	_, order := tagEditableNodes(doc)

	require.Len(t, order, 1)
	assert.Equal(t, ElementID("element-1"), order[0])
}

func TestTagEditableNodesWrappedTextIsNotEditable(t *testing.T) {
	// Text living entirely inside a child element belongs to that child, so
	// the wrapper is not tagged.
	doc := mustLoad(t, `<p><strong>bold only</strong></p>`)

	_, order := tagEditableNodes(doc)

	assert.Empty(t, order)
}

func TestTagEditableNodesMixedContent(t *testing.T) {
	doc := mustLoad(t, `<p>Presented to <strong>someone</strong></p>`)

	handles, order := tagEditableNodes(doc)

	require.Equal(t, []ElementID{"element-1"}, order)
	assert.Equal(t, "Presented to someone", handles["element-1"].Text())
}

func TestTagEditableNodesFieldBindingOverridesContainerLimit(t *testing.T) {
	// A data-field binding is an explicit author declaration, so the element
	// is tagged even when its structure would otherwise classify it as a
	// container.
	doc := mustLoad(t, `<div data-field="address_block">
		<span>Line one</span>
		<span>Line two</span>
		<span>Line three</span>
		<span>Line four</span>
	</div>`)

	handles, order := tagEditableNodes(doc)

	require.Contains(t, order, ElementID("address_block"))
	assert.Equal(t, "address_block", handles["address_block"].DataField)
}

func TestTagEditableNodesAdoptsExistingIDs(t *testing.T) {
	// Server-rendered previews re-emit data-editable ids for elements that
	// carry overrides. Those ids are adopted, and fresh anonymous numbering
	// skips past them so ids stay stable across reloads.
	doc := mustLoad(t, `<div class="cert">
		<h1>Heading</h1>
		<p data-editable="element-2">Moved subtitle</p>
		<p>Footer note</p>
	</div>`)

	handles, order := tagEditableNodes(doc)

	require.Equal(t, []ElementID{"element-1", "element-2", "element-3"}, order)
	assert.Equal(t, "Moved subtitle", handles["element-2"].Text())
	assert.Equal(t, "Footer note", handles["element-3"].Text())
}

func TestTagEditableNodesDuplicateFieldFirstWins(t *testing.T) {
	doc := mustLoad(t, `<div>
		<p data-field="participant_name">First</p>
		<span data-field="participant_name">Second</span>
	</div>`)

	handles, order := tagEditableNodes(doc)

	require.Equal(t, []ElementID{"participant_name"}, order)
	assert.Equal(t, "First", handles["participant_name"].Text())
}

func TestLoadDocumentStripsActiveContent(t *testing.T) {
	doc := mustLoad(t, `<div>
		<p data-field="participant_name" onclick="steal()">John</p>
		<script>alert("x")</script>
		<iframe src="https://example.com"></iframe>
	</div>`)

	html, err := doc.HTML()
	require.NoError(t, err)
	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "<iframe")
	assert.NotContains(t, html, "onclick")
	assert.Contains(t, html, `data-field="participant_name"`)
}
