package editor

import "context"

// PreviewRequest carries everything the preview service needs to re-render
// the template with the session's current data and overrides.
type PreviewRequest struct {
	TemplateID string          `json:"template_id"`
	Data       *FieldMap       `json:"certificate_data"`
	Positions  []PositionEntry `json:"positions,omitempty"`
	Styles     []StyleEntry    `json:"styles,omitempty"`
}

// PreviewResult is a rendered preview document.
type PreviewResult struct {
	HTML         string `json:"html"`
	TemplateID   string `json:"template_id"`
	TemplateName string `json:"template_name"`
}

// FinalizeRequest is the serialised session state submitted for certificate
// generation.
type FinalizeRequest struct {
	TemplateID    string          `json:"template_id"`
	Data          *FieldMap       `json:"certificate_data"`
	Positions     []PositionEntry `json:"positions,omitempty"`
	Styles        []StyleEntry    `json:"styles,omitempty"`
	OutputFormats []string        `json:"output_formats,omitempty"`
}

// FinalizeResult reports the generated certificate and its download links
// keyed by output format.
type FinalizeResult struct {
	CertificateID string            `json:"certificate_id"`
	DownloadURLs  map[string]string `json:"download_urls"`
}

// PreviewClient renders preview documents. Implementations must be safe for
// concurrent use; the session may issue overlapping requests and discards
// stale responses itself.
type PreviewClient interface {
	RenderPreview(ctx context.Context, req PreviewRequest) (PreviewResult, error)
}

// FinalizeClient generates the final certificate artefacts.
type FinalizeClient interface {
	Finalize(ctx context.Context, req FinalizeRequest) (FinalizeResult, error)
}
