// Package certificates holds the certificate generation domain: templates,
// preview rendering, artefact generation through the external converter, and
// the generation history.
package certificates

import (
	"context"
	"errors"
	"time"

	"github.com/code-networkershome/certificate-generator/internal/editor"
)

var (
	// ErrInvalidInput indicates the caller supplied invalid parameters.
	ErrInvalidInput = errors.New("certificates: invalid input")
	// ErrTemplateNotFound indicates the template id does not exist or is inactive.
	ErrTemplateNotFound = errors.New("certificates: template not found")
	// ErrCertificateExists indicates a caller-supplied certificate id is already taken.
	ErrCertificateExists = errors.New("certificates: certificate id already exists")
	// ErrCertificateNotFound indicates a lookup for a missing certificate.
	ErrCertificateNotFound = errors.New("certificates: certificate not found")
)

// Template is one stored certificate design. HTML carries {{ field }}
// placeholders and data-field bindings for the editor. CanvasWidth and
// CanvasHeight are logical pixels; zero means the default canvas.
type Template struct {
	ID           string
	Name         string
	Description  string
	Thumbnail    string
	HTML         string
	CSS          string
	CanvasWidth  float64
	CanvasHeight float64
	Active       bool
	CreatedAt    time.Time
}

// Certificate is one generated certificate record. Owner is the optional
// caller-declared owner id; empty means unscoped.
type Certificate struct {
	ID            string
	CertificateID string
	TemplateID    string
	Owner         string
	Data          *editor.FieldMap
	PDFPath       string
	PNGPath       string
	JPGPath       string
	Status        string
	GeneratedAt   time.Time
}

// TemplateRepository stores certificate templates.
type TemplateRepository interface {
	GetTemplate(ctx context.Context, id string) (Template, error)
	ListActiveTemplates(ctx context.Context) ([]Template, error)
	UpsertTemplate(ctx context.Context, tpl Template) error
}

// CertificateRepository stores generated certificate records. An empty owner
// on listing means no owner filter.
type CertificateRepository interface {
	InsertCertificate(ctx context.Context, cert Certificate) error
	CertificateIDExists(ctx context.Context, certificateID string) (bool, error)
	ListRecentCertificates(ctx context.Context, owner string, limit int) ([]Certificate, error)
}

// ArtefactStore persists generated artefact bytes and reports the relative
// path they can be served from.
type ArtefactStore interface {
	SaveArtefact(certificateID, format string, data []byte, at time.Time) (string, error)
}
