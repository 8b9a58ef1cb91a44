// Package memory provides an in-memory certificate store for tests and local
// development without Postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/code-networkershome/certificate-generator/internal/certificates"
)

// Store keeps templates and certificate records in maps guarded by a mutex.
type Store struct {
	mu        sync.RWMutex
	templates map[string]certificates.Template
	certs     []certificates.Certificate
	certIDs   map[string]struct{}
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		templates: make(map[string]certificates.Template),
		certIDs:   make(map[string]struct{}),
	}
}

// GetTemplate returns an active template by id.
func (s *Store) GetTemplate(_ context.Context, id string) (certificates.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[id]
	if !ok || !tpl.Active {
		return certificates.Template{}, fmt.Errorf("%w: %s", certificates.ErrTemplateNotFound, id)
	}
	return tpl, nil
}

// ListActiveTemplates returns active templates sorted by name.
func (s *Store) ListActiveTemplates(_ context.Context) ([]certificates.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []certificates.Template
	for _, tpl := range s.templates {
		if tpl.Active {
			out = append(out, tpl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpsertTemplate inserts or replaces a template.
func (s *Store) UpsertTemplate(_ context.Context, tpl certificates.Template) error {
	if tpl.ID == "" {
		return fmt.Errorf("%w: template id is required", certificates.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tpl.ID] = tpl
	return nil
}

// InsertCertificate appends a certificate record.
func (s *Store) InsertCertificate(_ context.Context, cert certificates.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.certIDs[cert.CertificateID]; exists {
		return fmt.Errorf("%w: %s", certificates.ErrCertificateExists, cert.CertificateID)
	}
	s.certs = append(s.certs, cert)
	s.certIDs[cert.CertificateID] = struct{}{}
	return nil
}

// CertificateIDExists reports whether the public certificate id is taken.
func (s *Store) CertificateIDExists(_ context.Context, certificateID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.certIDs[certificateID]
	return ok, nil
}

// ListRecentCertificates returns up to limit records, newest first. An empty
// owner matches every record.
func (s *Store) ListRecentCertificates(_ context.Context, owner string, limit int) ([]certificates.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]certificates.Certificate, 0, len(s.certs))
	for _, cert := range s.certs {
		if owner != "" && cert.Owner != owner {
			continue
		}
		out = append(out, cert)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
