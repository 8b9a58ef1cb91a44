package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionDeps wires the collaborators an editor session requires.
type SessionDeps struct {
	Previews  PreviewClient
	Finalizer FinalizeClient

	TemplateID   string
	TemplateName string
	Data         *FieldMap

	// Canvas is the logical document size. Zero means DefaultCanvas.
	Canvas Size

	Clock  func() time.Time
	Logger *zap.Logger

	// OnDataChanged, when set, is invoked after a committed inline edit
	// writes a field value. Called outside the session lock.
	OnDataChanged func(field, value string)
}

// Session is one interactive editing session over a certificate template
// preview. All methods are safe for concurrent use; a single mutex serialises
// state transitions while network calls run unlocked.
type Session struct {
	previews  PreviewClient
	finalizer FinalizeClient
	clock     func() time.Time
	logger    *zap.Logger
	onData    func(field, value string)

	mu           sync.Mutex
	templateID   string
	templateName string
	data         *FieldMap
	canvas       Size
	avail        Size
	canvasOrigin Point
	scale        float64

	doc      *Document
	handles  map[ElementID]*NodeHandle
	tagOrder []ElementID

	selection *NodeHandle
	edit      *editSession
	drag      *dragSession

	positions *positionStore
	styles    *styleStore

	previewSeq uint64
	state      State
	closed     bool
	failure    string
}

// NewSession validates dependencies and returns a session in the loading
// state. Call Start to fetch the initial preview.
func NewSession(deps SessionDeps) (*Session, error) {
	if deps.Previews == nil {
		return nil, fmt.Errorf("%w: preview client is required", ErrInvalidInput)
	}
	if deps.Finalizer == nil {
		return nil, fmt.Errorf("%w: finalize client is required", ErrInvalidInput)
	}
	if deps.TemplateID == "" {
		return nil, fmt.Errorf("%w: template id is required", ErrInvalidInput)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	canvas := deps.Canvas
	if canvas.Width <= 0 || canvas.Height <= 0 {
		canvas = DefaultCanvas
	}

	return &Session{
		previews:     deps.Previews,
		finalizer:    deps.Finalizer,
		clock:        clock,
		logger:       logger,
		onData:       deps.OnDataChanged,
		templateID:   deps.TemplateID,
		templateName: deps.TemplateName,
		data:         deps.Data.Clone(),
		canvas:       canvas,
		scale:        maxFitScale,
		positions:    newPositionStore(),
		styles:       newStyleStore(),
		state:        StateLoading,
	}, nil
}

// Start fetches and installs the initial preview document.
func (s *Session) Start(ctx context.Context) error {
	return s.Refresh(ctx)
}

// Refresh re-renders the preview with the session's current data and
// overrides. Responses arriving after a newer request has been issued are
// discarded, so overlapping refreshes settle on the latest request's result.
// The previous document stays interactive until the replacement is installed.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.previewSeq++
	seq := s.previewSeq
	req := PreviewRequest{
		TemplateID: s.templateID,
		Data:       s.data.Clone(),
		Positions:  s.positions.entries(),
		Styles:     s.styles.entries(),
	}
	s.mu.Unlock()

	res, err := s.previews.RenderPreview(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if seq != s.previewSeq {
		// A newer refresh is in flight or already landed.
		return nil
	}
	if err != nil {
		s.failure = "preview request failed"
		s.logger.Warn("preview fetch failed", zap.String("template_id", s.templateID), zap.Error(err))
		return fmt.Errorf("editor: preview fetch: %w", err)
	}
	if applyErr := s.installDocumentLocked(res); applyErr != nil {
		s.failure = "preview document unreadable"
		return applyErr
	}
	return nil
}

// installDocumentLocked replaces the hosted document, invalidates every live
// node binding, retags, and re-applies stored overrides to the fresh nodes.
func (s *Session) installDocumentLocked(res PreviewResult) error {
	doc, err := loadDocument(res.HTML)
	if err != nil {
		return err
	}

	s.selection = nil
	s.edit = nil
	s.drag = nil
	s.failure = ""

	s.doc = doc
	s.handles, s.tagOrder = tagEditableNodes(doc)
	if res.TemplateName != "" {
		s.templateName = res.TemplateName
	}

	for _, id := range s.positions.order {
		if h, ok := s.handles[id]; ok {
			pos := s.positions.byID[id]
			applyPosition(h.sel, pos)
		}
	}
	for _, id := range s.styles.order {
		if h, ok := s.handles[id]; ok {
			applyStyle(h.sel, s.styles.byID[id])
		}
	}

	s.state = StateReady
	return nil
}

// Resize recomputes the fit-to-container scale for a new available area.
func (s *Session) Resize(avail Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.avail = avail
	s.scale = fitScale(avail, s.canvas)
}

// SetCanvasOrigin records the canvas element's current on-screen origin, used
// to translate pointer coordinates into canvas units.
func (s *Session) SetCanvasOrigin(origin Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvasOrigin = origin
}

// Scale returns the current fit-to-container scale.
func (s *Session) Scale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

// State reports the session's lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TemplateID returns the template under edit.
func (s *Session) TemplateID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templateID
}

// TemplateName returns the template's display name, which may be refined by
// preview responses.
func (s *Session) TemplateName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templateName
}

// Data returns a snapshot of the session's certificate data.
func (s *Session) Data() *FieldMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// SetField updates one certificate data field, e.g. when the host form edits
// a value directly. The preview is not refreshed automatically.
func (s *Session) SetField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if field == "" {
		return fmt.Errorf("%w: field name is required", ErrInvalidInput)
	}
	s.data.Set(field, value)
	return nil
}

// DocumentHTML serialises the current document tree with all live mutations.
func (s *Session) DocumentHTML() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", ErrNotReady
	}
	return s.doc.HTML()
}

// ElementInfo describes one editable element in the current document.
type ElementInfo struct {
	ID        ElementID
	DataField string
	Text      string
}

// Elements lists the editable elements in document order.
func (s *Session) Elements() []ElementInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tagOrder) == 0 {
		return nil
	}
	out := make([]ElementInfo, 0, len(s.tagOrder))
	for _, id := range s.tagOrder {
		h := s.handles[id]
		out = append(out, ElementInfo{ID: h.ID, DataField: h.DataField, Text: h.Text()})
	}
	return out
}

// PositionOverride returns the stored position override for an element.
func (s *Session) PositionOverride(id ElementID) (Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions.get(id)
}

// StyleOverride returns the stored style override for an element.
func (s *Session) StyleOverride(id ElementID) (Style, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.styles.get(id)
}

// OverrideCounts reports how many elements carry position and style
// overrides.
func (s *Session) OverrideCounts() (positions, styles int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions.len(), s.styles.len()
}

// LastFailure returns the most recent dismissible failure message, if any.
func (s *Session) LastFailure() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure, s.failure != ""
}

// DismissFailure clears the failure message.
func (s *Session) DismissFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = ""
}

// Back discards the session: pending edits are dropped without committing,
// overrides are cleared, and the session stops accepting operations.
func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.edit = nil
	s.drag = nil
	s.selection = nil
	s.positions.clear()
	s.styles.clear()
	s.closed = true
}

func (s *Session) readyLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.doc == nil || s.state == StateLoading {
		return ErrNotReady
	}
	return nil
}
