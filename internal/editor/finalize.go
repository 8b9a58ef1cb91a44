package editor

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Finalize serialises the session's accumulated state and submits it for
// certificate generation. An open text edit commits first so its value is not
// lost. On failure the session returns to its prior interactive state with
// every override intact; on success the overrides are cleared and the session
// ends.
func (s *Session) Finalize(ctx context.Context, formats []string) (FinalizeResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return FinalizeResult{}, ErrSessionClosed
	}
	if s.state == StateFinalizing {
		s.mu.Unlock()
		return FinalizeResult{}, ErrFinalizeInFlight
	}
	if s.doc == nil || s.state == StateLoading {
		s.mu.Unlock()
		return FinalizeResult{}, ErrNotReady
	}

	notify := s.commitEditLocked()
	prior := s.state
	s.state = StateFinalizing

	req := FinalizeRequest{
		TemplateID:    s.templateID,
		Data:          s.data.Clone(),
		Positions:     s.positions.entries(),
		Styles:        s.styles.entries(),
		OutputFormats: append([]string(nil), formats...),
	}
	s.mu.Unlock()

	if notify != nil {
		notify()
	}

	res, err := s.finalizer.Finalize(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = prior
		s.failure = "certificate generation failed"
		s.logger.Warn("finalize failed", zap.String("template_id", s.templateID), zap.Error(err))
		return FinalizeResult{}, fmt.Errorf("editor: finalize: %w", err)
	}

	s.positions.clear()
	s.styles.clear()
	s.state = StateDone
	s.closed = true
	s.logger.Info("certificate finalized",
		zap.String("template_id", s.templateID),
		zap.String("certificate_id", res.CertificateID),
	)
	return res, nil
}
