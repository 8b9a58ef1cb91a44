package editor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// attrEditable marks a node as editable and carries its element id.
	attrEditable = "data-editable"
	// attrField binds a node to a certificate data field by name.
	attrField = "data-field"

	// maxEditableChildNodes bounds structural complexity: nodes with more
	// children are treated as containers, not editable text.
	maxEditableChildNodes = 3
)

var editableSelector = strings.Join([]string{
	"p", "h1", "h2", "h3", "h4", "h5", "h6",
	"span", "div", "label", "td", "th", "li", "blockquote", "figcaption",
}, ", ")

// NodeHandle is the live binding between an element id and its node in the
// hosted document. Handles are invalidated whenever a new preview loads.
type NodeHandle struct {
	ID        ElementID
	DataField string
	sel       *goquery.Selection
}

// Text returns the node's current text content.
func (h *NodeHandle) Text() string {
	return h.sel.Text()
}

// TagEditableElements runs the in-order tagging pass on an already parsed
// document, stamping data-editable ids exactly as a session does when it
// loads a preview. Server-side rendering uses this so anonymous element-N
// ids resolve to the same nodes the editor assigned them to. Returns the
// tagged ids in document order.
func TagEditableElements(doc *goquery.Document) []ElementID {
	_, order := tagEditableNodes(&Document{doc: doc})
	return order
}

// tagEditableNodes walks the document in order, classifying text-bearing
// nodes as editable and stamping each with a data-editable id. Nodes that
// declare a data-field use the field name as their id; nodes that already
// carry a data-editable id (a server-rendered preview re-emits ids for
// elements with overrides) keep it; everything else gets the next free
// sequential "element-N" id. Returns the handle map plus ids in document
// order.
func tagEditableNodes(doc *Document) (map[ElementID]*NodeHandle, []ElementID) {
	handles := make(map[ElementID]*NodeHandle)
	var order []ElementID
	counter := 0

	doc.find(editableSelector).Each(func(_ int, sel *goquery.Selection) {
		if len(sel.Nodes) == 0 {
			return
		}
		field := strings.TrimSpace(sel.AttrOr(attrField, ""))
		existing := strings.TrimSpace(sel.AttrOr(attrEditable, ""))

		var id ElementID
		switch {
		case field != "":
			id = ElementID(field)
		case existing != "":
			id = ElementID(existing)
		default:
			if !qualifiesEditable(sel) {
				return
			}
			counter, id = nextAnonymousID(counter, handles)
		}

		if _, dup := handles[id]; dup {
			// Duplicate binding: the first occurrence wins.
			return
		}

		sel.SetAttr(attrEditable, string(id))
		handle := &NodeHandle{ID: id, DataField: field, sel: sel}
		handles[id] = handle
		order = append(order, id)
	})

	return handles, order
}

// qualifiesEditable reports whether a node is simple enough to edit in place:
// few children, and either direct text content or no element children with
// non-empty aggregate text.
func qualifiesEditable(sel *goquery.Selection) bool {
	node := sel.Nodes[0]
	childCount := 0
	elementChildren := 0
	directText := false
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		childCount++
		switch c.Type {
		case html.ElementNode:
			elementChildren++
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				directText = true
			}
		}
	}
	if childCount > maxEditableChildNodes {
		return false
	}
	if directText {
		return true
	}
	return elementChildren == 0 && strings.TrimSpace(sel.Text()) != ""
}

func nextAnonymousID(counter int, taken map[ElementID]*NodeHandle) (int, ElementID) {
	for {
		counter++
		id := ElementID(fmt.Sprintf("element-%d", counter))
		if _, ok := taken[id]; !ok {
			return counter, id
		}
	}
}
