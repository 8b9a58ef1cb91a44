package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	timeoutShort = 2 * time.Second
	pollShort    = 10 * time.Millisecond
)

const certificateFixture = `<!DOCTYPE html>
<html><head><title>Certificate</title></head>
<body>
<div class="certificate">
<h1>Certificate of Achievement</h1>
<p data-field="participant_name">John Doe</p>
<p data-field="course_name">Go Fundamentals</p>
<p>Awarded for outstanding performance</p>
</div>
</body></html>`

type stubPreviewClient struct {
	mu      sync.Mutex
	calls   []PreviewRequest
	respond func(call int, req PreviewRequest) (PreviewResult, error)
}

func (c *stubPreviewClient) RenderPreview(_ context.Context, req PreviewRequest) (PreviewResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	call := len(c.calls)
	respond := c.respond
	c.mu.Unlock()
	if respond != nil {
		return respond(call, req)
	}
	return PreviewResult{HTML: certificateFixture, TemplateID: req.TemplateID, TemplateName: "Classic"}, nil
}

func (c *stubPreviewClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type stubFinalizeClient struct {
	mu      sync.Mutex
	calls   []FinalizeRequest
	respond func(req FinalizeRequest) (FinalizeResult, error)
}

func (c *stubFinalizeClient) Finalize(_ context.Context, req FinalizeRequest) (FinalizeResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	respond := c.respond
	c.mu.Unlock()
	if respond != nil {
		return respond(req)
	}
	return FinalizeResult{CertificateID: "NH-2026-00042"}, nil
}

func newTestSession(t *testing.T, previews *stubPreviewClient, finalizer *stubFinalizeClient) *Session {
	t.Helper()
	data := NewFieldMap()
	data.Set("participant_name", "John Doe")
	data.Set("course_name", "Go Fundamentals")

	s, err := NewSession(SessionDeps{
		Previews:   previews,
		Finalizer:  finalizer,
		TemplateID: "classic",
		Data:       data,
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	return s
}

func sessionDoc(t *testing.T, s *Session) *goquery.Document {
	t.Helper()
	html, err := s.DocumentHTML()
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestNewSessionValidatesDeps(t *testing.T) {
	_, err := NewSession(SessionDeps{Finalizer: &stubFinalizeClient{}, TemplateID: "classic"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewSession(SessionDeps{Previews: &stubPreviewClient{}, TemplateID: "classic"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewSession(SessionDeps{Previews: &stubPreviewClient{}, Finalizer: &stubFinalizeClient{}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStartTagsDocument(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})

	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, "Classic", s.TemplateName())

	elements := s.Elements()
	require.Len(t, elements, 4)
	assert.Equal(t, ElementID("element-1"), elements[0].ID)
	assert.Equal(t, ElementID("participant_name"), elements[1].ID)
	assert.Equal(t, ElementID("course_name"), elements[2].ID)
	assert.Equal(t, ElementID("element-2"), elements[3].ID)
}

func TestActivateHighlightsSingleElement(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})

	require.NoError(t, s.Activate("participant_name"))
	require.NoError(t, s.Activate("course_name"))

	sel, ok := s.Selection()
	require.True(t, ok)
	assert.Equal(t, ElementID("course_name"), sel.ID)
	assert.Equal(t, StateSelected, s.State())

	doc := sessionDoc(t, s)
	highlighted := doc.Find("." + selectedClass)
	require.Equal(t, 1, highlighted.Length())
	assert.Equal(t, "course_name", highlighted.AttrOr(attrEditable, ""))
}

func TestActivateOutsideClearsSelection(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})

	require.NoError(t, s.Activate("participant_name"))
	require.NoError(t, s.ActivateOutside())

	_, ok := s.Selection()
	assert.False(t, ok)
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, 0, sessionDoc(t, s).Find("."+selectedClass).Length())
}

func TestActivateUnknownElement(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})
	assert.ErrorIs(t, s.Activate("element-99"), ErrUnknownElement)
}

func TestCommitTextEditWritesFieldOnce(t *testing.T) {
	previews := &stubPreviewClient{}
	s := newTestSession(t, previews, &stubFinalizeClient{})

	var mu sync.Mutex
	var changes [][2]string
	s.onData = func(field, value string) {
		mu.Lock()
		changes = append(changes, [2]string{field, value})
		mu.Unlock()
	}

	require.NoError(t, s.BeginTextEdit("participant_name"))
	assert.Equal(t, StateEditing, s.State())
	require.NoError(t, s.UpdateEditorText("Jane"))
	require.NoError(t, s.UpdateEditorText("Jane Roe"))
	require.NoError(t, s.CommitTextEdit())

	value, ok := s.Data().Get("participant_name")
	require.True(t, ok)
	assert.Equal(t, "Jane Roe", value)

	mu.Lock()
	require.Len(t, changes, 1)
	assert.Equal(t, [2]string{"participant_name", "Jane Roe"}, changes[0])
	mu.Unlock()

	// The live node reflects the committed text without a refetch.
	doc := sessionDoc(t, s)
	assert.Equal(t, "Jane Roe", doc.Find(`[data-editable="participant_name"]`).Text())
	assert.Equal(t, 1, previews.callCount())
	assert.Equal(t, StateSelected, s.State())
}

func TestCancelTextEditLeavesEverythingUntouched(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})

	require.NoError(t, s.BeginTextEdit("participant_name"))
	require.NoError(t, s.UpdateEditorText("Jane Roe"))
	require.NoError(t, s.CancelTextEdit())

	value, _ := s.Data().Get("participant_name")
	assert.Equal(t, "John Doe", value)
	doc := sessionDoc(t, s)
	assert.Equal(t, "John Doe", doc.Find(`[data-editable="participant_name"]`).Text())

	assert.ErrorIs(t, s.CommitTextEdit(), ErrNoEditSession)
}

func TestAnonymousEditDoesNotTouchData(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})

	require.NoError(t, s.BeginTextEdit("element-2"))
	require.NoError(t, s.UpdateEditorText("Awarded with distinction"))
	require.NoError(t, s.CommitTextEdit())

	assert.Equal(t, 2, s.Data().Len())
	doc := sessionDoc(t, s)
	assert.Equal(t, "Awarded with distinction", doc.Find(`[data-editable="element-2"]`).Text())
}

func TestBeginTextEditForcesPriorCommit(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})

	require.NoError(t, s.BeginTextEdit("participant_name"))
	require.NoError(t, s.UpdateEditorText("Jane Roe"))
	require.NoError(t, s.BeginTextEdit("course_name"))

	value, _ := s.Data().Get("participant_name")
	assert.Equal(t, "Jane Roe", value)
	assert.Equal(t, StateEditing, s.State())
}

func TestPointerDownForcesCommitBeforeDrag(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})

	require.NoError(t, s.BeginTextEdit("participant_name"))
	require.NoError(t, s.UpdateEditorText("Jane Roe"))

	require.NoError(t, s.PointerDown("course_name", Point{X: 100, Y: 100}, Point{X: 90, Y: 95}))

	value, _ := s.Data().Get("participant_name")
	assert.Equal(t, "Jane Roe", value)
	assert.Equal(t, StateDragging, s.State())

	require.NoError(t, s.PointerUp())
	assert.Equal(t, StateSelected, s.State())
}

func TestDragStoresLastComputedPosition(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})
	s.Resize(Size{Width: 1123, Height: 794})
	s.SetCanvasOrigin(Point{X: 10, Y: 20})

	require.NoError(t, s.PointerDown("participant_name", Point{X: 110, Y: 220}, Point{X: 100, Y: 200}))
	require.NoError(t, s.PointerMove(Point{X: 150, Y: 260}))
	require.NoError(t, s.PointerMove(Point{X: 310, Y: 420}))
	require.NoError(t, s.PointerUp())

	pos, ok := s.PositionOverride("participant_name")
	require.True(t, ok)
	// scale 1: (310-10)/1 - (110-100)/1 = 290, (420-20)/1 - 20 = 380.
	assert.InDelta(t, 290, pos.X, 1e-9)
	assert.InDelta(t, 380, pos.Y, 1e-9)

	positions, styles := s.OverrideCounts()
	assert.Equal(t, 1, positions)
	assert.Equal(t, 0, styles)

	doc := sessionDoc(t, s)
	style := doc.Find(`[data-editable="participant_name"]`).AttrOr("style", "")
	assert.Contains(t, style, "position: absolute")
	assert.Contains(t, style, "left: 290px")
	assert.Contains(t, style, "top: 380px")
}

func TestDragScalesPointerDeltasIntoCanvasUnits(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})
	s.Resize(Size{Width: 600, Height: 400})
	scale := s.Scale()
	assert.InDelta(t, 0.504, scale, 0.001)

	require.NoError(t, s.PointerDown("participant_name", Point{X: 100, Y: 100}, Point{X: 100, Y: 100}))
	require.NoError(t, s.PointerMove(Point{X: 100, Y: 100}))
	start, ok := s.PositionOverride("participant_name")
	require.True(t, ok)

	// A 50px screen move at scale ~0.504 lands ~99.2 canvas units away.
	require.NoError(t, s.PointerMove(Point{X: 150, Y: 100}))
	end, _ := s.PositionOverride("participant_name")
	assert.InDelta(t, 99.2, end.X-start.X, 0.1)
	assert.InDelta(t, 0, end.Y-start.Y, 1e-9)

	require.NoError(t, s.PointerUp())
}

func TestResizeDoesNotDisturbStoredOverrides(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})

	require.NoError(t, s.PointerDown("participant_name", Point{X: 0, Y: 0}, Point{X: 0, Y: 0}))
	require.NoError(t, s.PointerMove(Point{X: 300, Y: 200}))
	require.NoError(t, s.PointerUp())
	before, _ := s.PositionOverride("participant_name")

	s.Resize(Size{Width: 600, Height: 400})
	after, ok := s.PositionOverride("participant_name")
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestPointerMoveWithoutDrag(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})
	assert.ErrorIs(t, s.PointerMove(Point{X: 1, Y: 1}), ErrNoDragSession)
	assert.ErrorIs(t, s.PointerUp(), ErrNoDragSession)
}

func TestSetStyleRequiresSelection(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})
	assert.ErrorIs(t, s.SetStyle(StyleColor, "#000"), ErrNoSelection)
}

func TestSetStyleMergesAndRestyles(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})

	require.NoError(t, s.Activate("course_name"))
	require.NoError(t, s.SetStyle(StyleFontSize, "18px"))
	require.NoError(t, s.SetStyle(StyleColor, "#003366"))
	require.NoError(t, s.SetStyle(StyleFontSize, "24px"))

	st, ok := s.StyleOverride("course_name")
	require.True(t, ok)
	assert.Equal(t, Style{FontSize: "24px", Color: "#003366"}, st)

	style := sessionDoc(t, s).Find(`[data-editable="course_name"]`).AttrOr("style", "")
	assert.Contains(t, style, "font-size: 24px")
	assert.Contains(t, style, "color: #003366")

	assert.ErrorIs(t, s.SetStyle(StyleProperty("letterSpacing"), "2px"), ErrInvalidInput)
}

func TestRefreshReappliesOverridesToFreshNodes(t *testing.T) {
	previews := &stubPreviewClient{}
	s := newTestSession(t, previews, &stubFinalizeClient{})

	require.NoError(t, s.Activate("participant_name"))
	require.NoError(t, s.SetStyle(StyleColor, "#990000"))
	require.NoError(t, s.PointerDown("participant_name", Point{X: 0, Y: 0}, Point{X: 0, Y: 0}))
	require.NoError(t, s.PointerMove(Point{X: 50, Y: 60}))
	require.NoError(t, s.PointerUp())

	require.NoError(t, s.Refresh(context.Background()))

	// Selection does not survive a reload, overrides do.
	_, selected := s.Selection()
	assert.False(t, selected)

	req := previews.calls[len(previews.calls)-1]
	require.Len(t, req.Positions, 1)
	assert.Equal(t, "participant_name", req.Positions[0].ElementID)
	require.Len(t, req.Styles, 1)
	assert.Equal(t, "#990000", req.Styles[0].Color)

	style := sessionDoc(t, s).Find(`[data-editable="participant_name"]`).AttrOr("style", "")
	assert.Contains(t, style, "position: absolute")
	assert.Contains(t, style, "color: #990000")
}

func TestRefreshLastRequestWins(t *testing.T) {
	release := make(chan struct{})
	previews := &stubPreviewClient{}
	previews.respond = func(call int, req PreviewRequest) (PreviewResult, error) {
		if call == 2 {
			// First refresh stalls until the second one has landed.
			<-release
			return PreviewResult{HTML: `<p data-field="participant_name">stale</p>`}, nil
		}
		return PreviewResult{HTML: certificateFixture}, nil
	}
	s := newTestSession(t, previews, &stubFinalizeClient{})

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Refresh(context.Background()) }()

	// Wait for the stalled request to be issued, then run a newer one.
	require.Eventually(t, func() bool { return previews.callCount() == 2 }, timeoutShort, pollShort)
	require.NoError(t, s.SetField("participant_name", "Jane Roe"))
	require.NoError(t, s.Refresh(context.Background()))

	close(release)
	require.NoError(t, <-firstDone)

	// The stale payload was discarded.
	doc := sessionDoc(t, s)
	assert.NotContains(t, doc.Text(), "stale")
	assert.Equal(t, StateReady, s.State())
}

func TestRefreshFailureKeepsLastGoodDocument(t *testing.T) {
	previews := &stubPreviewClient{}
	s := newTestSession(t, previews, &stubFinalizeClient{})

	previews.respond = func(int, PreviewRequest) (PreviewResult, error) {
		return PreviewResult{}, errors.New("boom")
	}
	err := s.Refresh(context.Background())
	require.Error(t, err)

	msg, ok := s.LastFailure()
	require.True(t, ok)
	assert.Equal(t, "preview request failed", msg)

	// The previous document is still interactive.
	require.NoError(t, s.Activate("participant_name"))

	s.DismissFailure()
	_, ok = s.LastFailure()
	assert.False(t, ok)
}

func TestRefreshSuccessClearsFailure(t *testing.T) {
	previews := &stubPreviewClient{}
	previews.respond = func(call int, _ PreviewRequest) (PreviewResult, error) {
		if call == 2 {
			return PreviewResult{}, errors.New("boom")
		}
		return PreviewResult{HTML: certificateFixture}, nil
	}
	s := newTestSession(t, previews, &stubFinalizeClient{})

	require.Error(t, s.Refresh(context.Background()))
	_, ok := s.LastFailure()
	require.True(t, ok)

	require.NoError(t, s.Refresh(context.Background()))
	_, ok = s.LastFailure()
	assert.False(t, ok)
}

func TestFinalizeSerialisesSessionState(t *testing.T) {
	finalizer := &stubFinalizeClient{}
	s := newTestSession(t, &stubPreviewClient{}, finalizer)

	require.NoError(t, s.PointerDown("participant_name", Point{X: 0, Y: 0}, Point{X: 0, Y: 0}))
	require.NoError(t, s.PointerMove(Point{X: 120, Y: 80}))
	require.NoError(t, s.PointerUp())
	require.NoError(t, s.SetStyle(StyleFontWeight, "bold"))

	require.NoError(t, s.BeginTextEdit("participant_name"))
	require.NoError(t, s.UpdateEditorText("Jane Roe"))

	res, err := s.Finalize(context.Background(), []string{"pdf", "png"})
	require.NoError(t, err)
	assert.Equal(t, "NH-2026-00042", res.CertificateID)

	require.Len(t, finalizer.calls, 1)
	req := finalizer.calls[0]
	assert.Equal(t, "classic", req.TemplateID)
	assert.Equal(t, []string{"pdf", "png"}, req.OutputFormats)

	// The open edit committed before serialisation.
	name, _ := req.Data.Get("participant_name")
	assert.Equal(t, "Jane Roe", name)

	require.Len(t, req.Positions, 1)
	assert.Equal(t, PositionEntry{ElementID: "participant_name", X: 120, Y: 80}, req.Positions[0])
	require.Len(t, req.Styles, 1)
	assert.Equal(t, "bold", req.Styles[0].FontWeight)

	assert.Equal(t, StateDone, s.State())
	positions, styles := s.OverrideCounts()
	assert.Zero(t, positions)
	assert.Zero(t, styles)

	assert.ErrorIs(t, s.Activate("participant_name"), ErrSessionClosed)
}

func TestFinalizeFailureRestoresPriorState(t *testing.T) {
	finalizer := &stubFinalizeClient{
		respond: func(FinalizeRequest) (FinalizeResult, error) {
			return FinalizeResult{}, errors.New("converter unavailable")
		},
	}
	s := newTestSession(t, &stubPreviewClient{}, finalizer)

	require.NoError(t, s.Activate("participant_name"))
	require.NoError(t, s.SetStyle(StyleColor, "#112233"))

	_, err := s.Finalize(context.Background(), []string{"pdf"})
	require.Error(t, err)

	assert.Equal(t, StateSelected, s.State())
	msg, ok := s.LastFailure()
	require.True(t, ok)
	assert.Equal(t, "certificate generation failed", msg)

	// Overrides survive so the user can retry.
	st, ok := s.StyleOverride("participant_name")
	require.True(t, ok)
	assert.Equal(t, "#112233", st.Color)

	_, err = s.Finalize(context.Background(), []string{"pdf"})
	require.Error(t, err)
	require.Len(t, finalizer.calls, 2)

	// The retry serialises the same state as the failed attempt.
	assert.Equal(t, finalizer.calls[0].Positions, finalizer.calls[1].Positions)
	assert.Equal(t, finalizer.calls[0].Styles, finalizer.calls[1].Styles)
}

func TestBackDiscardsSession(t *testing.T) {
	s := newTestSession(t, &stubPreviewClient{}, &stubFinalizeClient{})

	require.NoError(t, s.BeginTextEdit("participant_name"))
	require.NoError(t, s.UpdateEditorText("never committed"))
	s.Back()

	value, _ := s.Data().Get("participant_name")
	assert.Equal(t, "John Doe", value)
	assert.ErrorIs(t, s.Refresh(context.Background()), ErrSessionClosed)
	assert.ErrorIs(t, s.Activate("participant_name"), ErrSessionClosed)
}
