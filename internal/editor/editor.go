// Package editor implements the interactive certificate template editor
// engine: an editing session over a server-rendered HTML preview that tracks
// per-element position and style overrides, inline text edits, selection and
// drag state, and serialises the accumulated overrides for finalization.
//
// The engine is UI-agnostic. An embedding surface (webview shell, test
// harness) renders the session's document, forwards pointer and text events
// to it, and applies the computed fit-to-container scale as a uniform visual
// transform.
package editor

import "errors"

// ElementID identifies one editable node. It is stable within a render pass
// and, for an unchanged template, across reloads. Field-bound elements use
// their declared field name; anonymous decorative text gets sequential
// "element-N" identifiers in document order.
type ElementID string

// Point is a 2D coordinate. Whether it is in screen pixels or canvas units
// depends on context; all persisted override values are canvas units.
type Point struct {
	X float64
	Y float64
}

// Size is a width/height pair.
type Size struct {
	Width  float64
	Height float64
}

// Position is a canvas-unit position override for one element.
type Position struct {
	X float64
	Y float64
}

// PositionEntry is the wire form of one position override.
type PositionEntry struct {
	ElementID string  `json:"element_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// StyleProperty names one overridable cosmetic property.
type StyleProperty string

// Overridable style properties.
const (
	StyleFontSize   StyleProperty = "fontSize"
	StyleColor      StyleProperty = "color"
	StyleFontWeight StyleProperty = "fontWeight"
	StyleTextAlign  StyleProperty = "textAlign"
)

// Style is a partial set of cosmetic overrides for one element. Empty fields
// are unset.
type Style struct {
	FontSize   string `json:"fontSize,omitempty"`
	Color      string `json:"color,omitempty"`
	FontWeight string `json:"fontWeight,omitempty"`
	TextAlign  string `json:"textAlign,omitempty"`
}

// StyleEntry is the wire form of one style override.
type StyleEntry struct {
	ElementID string `json:"element_id"`
	Style
}

// State enumerates the editor session lifecycle.
type State uint8

// Session states.
const (
	StateLoading State = iota
	StateReady
	StateSelected
	StateEditing
	StateDragging
	StateFinalizing
	StateDone
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSelected:
		return "selected"
	case StateEditing:
		return "editing"
	case StateDragging:
		return "dragging"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

var (
	// ErrSessionClosed indicates the session has finished or been discarded.
	ErrSessionClosed = errors.New("editor: session closed")
	// ErrNotReady indicates no document has been loaded yet.
	ErrNotReady = errors.New("editor: document not ready")
	// ErrNoSelection indicates an operation required a selected element.
	ErrNoSelection = errors.New("editor: no selection")
	// ErrUnknownElement indicates the element id is not tagged in the current document.
	ErrUnknownElement = errors.New("editor: unknown element")
	// ErrNoEditSession indicates no inline text edit is in progress.
	ErrNoEditSession = errors.New("editor: no text edit in progress")
	// ErrNoDragSession indicates no drag is in progress.
	ErrNoDragSession = errors.New("editor: no drag in progress")
	// ErrFinalizeInFlight indicates a finalize call is already pending.
	ErrFinalizeInFlight = errors.New("editor: finalize already in progress")
	// ErrInvalidInput indicates the caller provided invalid arguments.
	ErrInvalidInput = errors.New("editor: invalid input")
)

func (st *Style) set(prop StyleProperty, value string) bool {
	switch prop {
	case StyleFontSize:
		st.FontSize = value
	case StyleColor:
		st.Color = value
	case StyleFontWeight:
		st.FontWeight = value
	case StyleTextAlign:
		st.TextAlign = value
	default:
		return false
	}
	return true
}

func (st Style) isZero() bool {
	return st == Style{}
}
