package certificates

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/code-networkershome/certificate-generator/internal/convert"
	"github.com/code-networkershome/certificate-generator/internal/editor"
	"github.com/code-networkershome/certificate-generator/internal/render"
)

const (
	certificateIDField = "certificate_id"
	statusGenerated    = "generated"
	idAttempts         = 10
)

// Deps wires the collaborators the certificate service requires.
type Deps struct {
	Templates    TemplateRepository
	Certificates CertificateRepository
	Converter    convert.Converter
	Artefacts    ArtefactStore

	// DownloadBaseURL prefixes the /downloads/ links handed to clients.
	DownloadBaseURL string

	// Canvas is the page size used when a template declares none. Zero
	// falls back to the editor default.
	Canvas editor.Size

	Clock   func() time.Time
	Entropy io.Reader
	Logger  *zap.Logger
}

// Service implements preview rendering, certificate generation, and history.
type Service struct {
	templates    TemplateRepository
	certificates CertificateRepository
	converter    convert.Converter
	artefacts    ArtefactStore
	downloadBase string
	canvas       editor.Size
	clock        func() time.Time
	entropy      io.Reader
	logger       *zap.Logger
}

// NewService validates dependencies and constructs the service.
func NewService(deps Deps) (*Service, error) {
	if deps.Templates == nil {
		return nil, fmt.Errorf("%w: template repository is required", ErrInvalidInput)
	}
	if deps.Certificates == nil {
		return nil, fmt.Errorf("%w: certificate repository is required", ErrInvalidInput)
	}
	if deps.Converter == nil {
		return nil, fmt.Errorf("%w: converter is required", ErrInvalidInput)
	}
	if deps.Artefacts == nil {
		return nil, fmt.Errorf("%w: artefact store is required", ErrInvalidInput)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	entropy := deps.Entropy
	if entropy == nil {
		entropy = rand.Reader
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(deps.DownloadBaseURL, "/")
	canvas := deps.Canvas
	if canvas.Width <= 0 || canvas.Height <= 0 {
		canvas = editor.DefaultCanvas
	}

	return &Service{
		templates:    deps.Templates,
		certificates: deps.Certificates,
		converter:    deps.Converter,
		artefacts:    deps.Artefacts,
		downloadBase: base,
		canvas:       canvas,
		clock:        clock,
		entropy:      entropy,
		logger:       logger,
	}, nil
}

// PreviewInput describes one preview render.
type PreviewInput struct {
	TemplateID string
	Data       *editor.FieldMap
	Positions  []editor.PositionEntry
	Styles     []editor.StyleEntry
}

// PreviewOutput is the rendered preview document.
type PreviewOutput struct {
	HTML         string
	TemplateID   string
	TemplateName string
}

// Preview renders the template with the provided data and injects any editor
// overrides so the preview matches what the editor shows.
func (s *Service) Preview(ctx context.Context, in PreviewInput) (PreviewOutput, error) {
	if in.TemplateID == "" {
		return PreviewOutput{}, fmt.Errorf("%w: template id is required", ErrInvalidInput)
	}

	tpl, err := s.templates.GetTemplate(ctx, in.TemplateID)
	if err != nil {
		return PreviewOutput{}, err
	}

	html := render.Substitute(tpl.HTML, in.Data)
	html, err = render.InjectOverrides(html, in.Positions, in.Styles)
	if err != nil {
		return PreviewOutput{}, err
	}

	return PreviewOutput{HTML: html, TemplateID: tpl.ID, TemplateName: tpl.Name}, nil
}

// GenerateInput describes one certificate generation. Owner is optional and
// scopes the record in the history listing.
type GenerateInput struct {
	TemplateID    string
	Owner         string
	Data          *editor.FieldMap
	Positions     []editor.PositionEntry
	Styles        []editor.StyleEntry
	OutputFormats []string
}

// GenerateOutput reports the generated certificate and its download links.
type GenerateOutput struct {
	CertificateID string
	DownloadURLs  map[string]string
	GeneratedAt   time.Time
}

// Generate renders the final document, converts it into each requested
// format, stores the artefacts, and records the certificate. A certificate id
// supplied in the data is honoured after a uniqueness check; otherwise a
// fresh one is issued.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (GenerateOutput, error) {
	if in.TemplateID == "" {
		return GenerateOutput{}, fmt.Errorf("%w: template id is required", ErrInvalidInput)
	}

	formats, err := normaliseFormats(in.OutputFormats)
	if err != nil {
		return GenerateOutput{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	tpl, err := s.templates.GetTemplate(ctx, in.TemplateID)
	if err != nil {
		return GenerateOutput{}, err
	}

	data := in.Data.Clone()
	certID, _ := data.Get(certificateIDField)
	if certID != "" {
		exists, err := s.certificates.CertificateIDExists(ctx, certID)
		if err != nil {
			return GenerateOutput{}, err
		}
		if exists {
			return GenerateOutput{}, fmt.Errorf("%w: %s", ErrCertificateExists, certID)
		}
	} else {
		certID, err = s.newCertificateID(ctx)
		if err != nil {
			return GenerateOutput{}, err
		}
		data.Set(certificateIDField, certID)
	}

	html := render.Substitute(tpl.HTML, data)
	html, err = render.InjectOverrides(html, in.Positions, in.Styles)
	if err != nil {
		return GenerateOutput{}, err
	}

	now := s.clock()
	cert := Certificate{
		ID:            ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		CertificateID: certID,
		TemplateID:    tpl.ID,
		Owner:         strings.TrimSpace(in.Owner),
		Data:          data,
		Status:        statusGenerated,
		GeneratedAt:   now,
	}

	pageWidth, pageHeight := tpl.CanvasWidth, tpl.CanvasHeight
	if pageWidth <= 0 || pageHeight <= 0 {
		pageWidth, pageHeight = s.canvas.Width, s.canvas.Height
	}

	urls := make(map[string]string, len(formats))
	for _, format := range formats {
		artefact, err := s.converter.Convert(ctx, convert.Request{
			HTML:       html,
			Format:     format,
			PageWidth:  pageWidth,
			PageHeight: pageHeight,
		})
		if err != nil {
			return GenerateOutput{}, fmt.Errorf("certificates: convert %s: %w", format, err)
		}
		relPath, err := s.artefacts.SaveArtefact(certID, format, artefact, now)
		if err != nil {
			return GenerateOutput{}, fmt.Errorf("certificates: store %s artefact: %w", format, err)
		}
		switch format {
		case convert.FormatPDF:
			cert.PDFPath = relPath
		case convert.FormatPNG:
			cert.PNGPath = relPath
		case convert.FormatJPG:
			cert.JPGPath = relPath
		}
		urls[format] = s.downloadURL(relPath)
	}

	if err := s.certificates.InsertCertificate(ctx, cert); err != nil {
		return GenerateOutput{}, err
	}

	s.logger.Info("certificate generated",
		zap.String("certificate_id", certID),
		zap.String("template_id", tpl.ID),
		zap.Strings("formats", formats),
	)

	return GenerateOutput{CertificateID: certID, DownloadURLs: urls, GeneratedAt: now}, nil
}

// HistoryEntry is one row of the generation history.
type HistoryEntry struct {
	ID            string
	CertificateID string
	TemplateID    string
	Data          *editor.FieldMap
	Status        string
	GeneratedAt   time.Time
	DownloadURLs  map[string]string
}

// History lists recently generated certificates, newest first. An empty owner
// lists across all owners.
func (s *Service) History(ctx context.Context, owner string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	certs, err := s.certificates.ListRecentCertificates(ctx, strings.TrimSpace(owner), limit)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(certs))
	for _, cert := range certs {
		urls := make(map[string]string)
		if cert.PDFPath != "" {
			urls[convert.FormatPDF] = s.downloadURL(cert.PDFPath)
		}
		if cert.PNGPath != "" {
			urls[convert.FormatPNG] = s.downloadURL(cert.PNGPath)
		}
		if cert.JPGPath != "" {
			urls[convert.FormatJPG] = s.downloadURL(cert.JPGPath)
		}
		entries = append(entries, HistoryEntry{
			ID:            cert.ID,
			CertificateID: cert.CertificateID,
			TemplateID:    cert.TemplateID,
			Data:          cert.Data,
			Status:        cert.Status,
			GeneratedAt:   cert.GeneratedAt,
			DownloadURLs:  urls,
		})
	}
	return entries, nil
}

// Templates lists the active templates.
func (s *Service) Templates(ctx context.Context) ([]Template, error) {
	return s.templates.ListActiveTemplates(ctx)
}

// TemplateByID fetches one template.
func (s *Service) TemplateByID(ctx context.Context, id string) (Template, error) {
	if id == "" {
		return Template{}, fmt.Errorf("%w: template id is required", ErrInvalidInput)
	}
	return s.templates.GetTemplate(ctx, id)
}

// newCertificateID issues an NH-YYYY-XXXXX id, retrying on collisions. After
// repeated collisions it falls back to a ULID-derived suffix that is long
// enough to make another clash implausible.
func (s *Service) newCertificateID(ctx context.Context) (string, error) {
	year := s.clock().Year()
	for attempt := 0; attempt < idAttempts; attempt++ {
		id := fmt.Sprintf("NH-%d-%05d", year, s.randomDigits())
		exists, err := s.certificates.CertificateIDExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	suffix := ulid.MustNew(ulid.Timestamp(s.clock()), s.entropy).String()
	return fmt.Sprintf("NH-%d-%s", year, suffix[len(suffix)-8:]), nil
}

func (s *Service) randomDigits() uint32 {
	var buf [4]byte
	if _, err := io.ReadFull(s.entropy, buf[:]); err != nil {
		return uint32(s.clock().UnixNano()) % 100000
	}
	return binary.BigEndian.Uint32(buf[:]) % 100000
}

func (s *Service) downloadURL(relPath string) string {
	return s.downloadBase + "/downloads/" + strings.TrimLeft(relPath, "/")
}

func normaliseFormats(formats []string) ([]string, error) {
	if len(formats) == 0 {
		formats = []string{convert.FormatPDF}
	}
	seen := make(map[string]struct{}, len(formats))
	out := make([]string, 0, len(formats))
	for _, format := range formats {
		normalised, err := convert.NormalizeFormat(format)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[normalised]; dup {
			continue
		}
		seen[normalised] = struct{}{}
		out = append(out, normalised)
	}
	return out, nil
}
