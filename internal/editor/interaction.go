package editor

import "fmt"

// selectedClass highlights the active element; the embedding surface styles it.
const selectedClass = "editor-selected"

type editSession struct {
	id        ElementID
	dataField string
	original  string
	pending   string
}

type dragSession struct {
	id ElementID
	// offset is the grab point within the node, in canvas units. Subtracting
	// it from the translated pointer keeps the node from snapping its origin
	// to the cursor.
	offset Point
}

// SelectionInfo describes the currently highlighted element.
type SelectionInfo struct {
	ID        ElementID
	DataField string
}

// Activate highlights the element, clearing any previous highlight. At most
// one element is highlighted at a time.
func (s *Session) Activate(id ElementID) error {
	s.mu.Lock()
	notify, err := func() (func(), error) {
		if err := s.readyLocked(); err != nil {
			return nil, err
		}
		h, ok := s.handles[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownElement, id)
		}
		notify := s.commitEditLocked()
		s.selectLocked(h)
		s.state = StateSelected
		return notify, nil
	}()
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
	return err
}

// ActivateOutside handles a pointer-down outside any editable element: an
// open text edit commits, and the highlight clears.
func (s *Session) ActivateOutside() error {
	s.mu.Lock()
	notify, err := func() (func(), error) {
		if err := s.readyLocked(); err != nil {
			return nil, err
		}
		notify := s.commitEditLocked()
		s.clearSelectionLocked()
		s.state = StateReady
		return notify, nil
	}()
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
	return err
}

// Selection returns the highlighted element, if any.
func (s *Session) Selection() (SelectionInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return SelectionInfo{}, false
	}
	return SelectionInfo{ID: s.selection.ID, DataField: s.selection.DataField}, true
}

// BeginTextEdit opens an inline text edit on the element, capturing its
// current text. If another edit is already open it commits first; only one
// edit session exists at a time.
func (s *Session) BeginTextEdit(id ElementID) error {
	s.mu.Lock()
	notify, err := func() (func(), error) {
		if err := s.readyLocked(); err != nil {
			return nil, err
		}
		h, ok := s.handles[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownElement, id)
		}
		notify := s.commitEditLocked()
		s.selectLocked(h)
		text := h.Text()
		s.edit = &editSession{id: h.ID, dataField: h.DataField, original: text, pending: text}
		s.state = StateEditing
		return notify, nil
	}()
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
	return err
}

// UpdateEditorText replaces the pending text of the open edit. The document
// is untouched until the edit commits.
func (s *Session) UpdateEditorText(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.edit == nil {
		return ErrNoEditSession
	}
	s.edit.pending = value
	return nil
}

// CommitTextEdit writes the pending text into the document and, for a
// field-bound element, merges it into the certificate data exactly once.
func (s *Session) CommitTextEdit() error {
	s.mu.Lock()
	var notify func()
	err := func() error {
		if s.closed {
			return ErrSessionClosed
		}
		if s.edit == nil {
			return ErrNoEditSession
		}
		notify = s.commitEditLocked()
		return nil
	}()
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
	return err
}

// CancelTextEdit abandons the open edit. Neither the document nor the
// certificate data is mutated.
func (s *Session) CancelTextEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.edit == nil {
		return ErrNoEditSession
	}
	s.edit = nil
	if s.selection != nil {
		s.state = StateSelected
	} else {
		s.state = StateReady
	}
	return nil
}

// commitEditLocked closes the open edit, writing its pending text to the
// document and recording a field update when the element is field-bound. The
// returned func, if non-nil, invokes the data-changed callback and must be
// called after the lock is released.
func (s *Session) commitEditLocked() func() {
	e := s.edit
	if e == nil {
		return nil
	}
	s.edit = nil
	if h, ok := s.handles[e.id]; ok {
		h.sel.SetText(e.pending)
	}
	if s.selection != nil {
		s.state = StateSelected
	} else {
		s.state = StateReady
	}
	if e.dataField == "" {
		return nil
	}
	s.data.Set(e.dataField, e.pending)
	if s.onData == nil {
		return nil
	}
	field, value := e.dataField, e.pending
	return func() { s.onData(field, value) }
}

// PointerDown begins a drag on the element. The pointer and the node's
// on-screen origin arrive in screen coordinates; the grab offset is captured
// in canvas units so mid-drag scale changes cannot skew it. An open text edit
// commits first, and the node is switched to absolute positioning at its
// current location so the first move does not make it jump.
func (s *Session) PointerDown(id ElementID, pointer, nodeOrigin Point) error {
	s.mu.Lock()
	notify, err := func() (func(), error) {
		if err := s.readyLocked(); err != nil {
			return nil, err
		}
		h, ok := s.handles[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownElement, id)
		}
		notify := s.commitEditLocked()
		s.drag = nil
		s.selectLocked(h)

		offset := Point{
			X: (pointer.X - nodeOrigin.X) / s.scale,
			Y: (pointer.Y - nodeOrigin.Y) / s.scale,
		}
		if _, positioned := s.positions.get(id); !positioned {
			applyPosition(h.sel, Position(toCanvas(nodeOrigin, s.canvasOrigin, s.scale)))
		}
		s.drag = &dragSession{id: id, offset: offset}
		s.state = StateDragging
		return notify, nil
	}()
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
	return err
}

// PointerMove updates the dragged node's position override from the current
// pointer location. Each move overwrites the element's single override entry
// and repositions the live node.
func (s *Session) PointerMove(pointer Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.drag == nil {
		return ErrNoDragSession
	}
	canvasPoint := toCanvas(pointer, s.canvasOrigin, s.scale)
	pos := Position{
		X: canvasPoint.X - s.drag.offset.X,
		Y: canvasPoint.Y - s.drag.offset.Y,
	}
	s.positions.set(s.drag.id, pos)
	if h, ok := s.handles[s.drag.id]; ok {
		applyPosition(h.sel, pos)
	}
	return nil
}

// PointerUp ends the drag. The element stays highlighted.
func (s *Session) PointerUp() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.drag == nil {
		return ErrNoDragSession
	}
	s.drag = nil
	if s.selection != nil {
		s.state = StateSelected
	} else {
		s.state = StateReady
	}
	return nil
}

// SetStyle applies a cosmetic override to the highlighted element, merging it
// with any previous overrides for that element and restyling the live node.
func (s *Session) SetStyle(prop StyleProperty, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	if s.selection == nil {
		return ErrNoSelection
	}
	if value == "" {
		return fmt.Errorf("%w: style value is required", ErrInvalidInput)
	}
	if !s.styles.merge(s.selection.ID, prop, value) {
		return fmt.Errorf("%w: unknown style property %q", ErrInvalidInput, prop)
	}
	setInlineStyle(s.selection.sel, prop.CSSName(), value)
	return nil
}

func (s *Session) selectLocked(h *NodeHandle) {
	if s.selection != nil && s.selection.ID == h.ID {
		return
	}
	if s.selection != nil {
		s.selection.sel.RemoveClass(selectedClass)
	}
	h.sel.AddClass(selectedClass)
	s.selection = h
}

func (s *Session) clearSelectionLocked() {
	if s.selection == nil {
		return
	}
	s.selection.sel.RemoveClass(selectedClass)
	s.selection = nil
}
