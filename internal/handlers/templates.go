package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/code-networkershome/certificate-generator/internal/certificates"
	"github.com/code-networkershome/certificate-generator/internal/platform/httpx"
)

// TemplateHandlers exposes the template catalogue.
type TemplateHandlers struct {
	service *certificates.Service
}

// NewTemplateHandlers constructs a new TemplateHandlers instance.
func NewTemplateHandlers(service *certificates.Service) *TemplateHandlers {
	return &TemplateHandlers{service: service}
}

// Routes registers the /templates endpoints.
func (h *TemplateHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listTemplates)
	r.Get("/{templateID}", h.getTemplate)
}

type templateSummaryPayload struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Thumbnail    string  `json:"thumbnail,omitempty"`
	CanvasWidth  float64 `json:"canvas_width,omitempty"`
	CanvasHeight float64 `json:"canvas_height,omitempty"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

type templateDetailPayload struct {
	templateSummaryPayload
	HTML string `json:"html"`
	CSS  string `json:"css,omitempty"`
}

type templateListResponse struct {
	Templates []templateSummaryPayload `json:"templates"`
	Total     int                      `json:"total"`
}

func (h *TemplateHandlers) listTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "template service unavailable", http.StatusServiceUnavailable))
		return
	}

	templates, err := h.service.Templates(ctx)
	if err != nil {
		h.writeTemplateError(ctx, w, err)
		return
	}

	payload := templateListResponse{Templates: make([]templateSummaryPayload, 0, len(templates))}
	for _, tpl := range templates {
		payload.Templates = append(payload.Templates, buildTemplateSummary(tpl))
	}
	payload.Total = len(payload.Templates)

	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *TemplateHandlers) getTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "template service unavailable", http.StatusServiceUnavailable))
		return
	}

	templateID := strings.TrimSpace(chi.URLParam(r, "templateID"))
	if templateID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "template id is required", http.StatusBadRequest))
		return
	}

	tpl, err := h.service.TemplateByID(ctx, templateID)
	if err != nil {
		h.writeTemplateError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, templateDetailPayload{
		templateSummaryPayload: buildTemplateSummary(tpl),
		HTML:                   tpl.HTML,
		CSS:                    tpl.CSS,
	})
}

func buildTemplateSummary(tpl certificates.Template) templateSummaryPayload {
	payload := templateSummaryPayload{
		ID:           tpl.ID,
		Name:         tpl.Name,
		Description:  tpl.Description,
		Thumbnail:    tpl.Thumbnail,
		CanvasWidth:  tpl.CanvasWidth,
		CanvasHeight: tpl.CanvasHeight,
	}
	if !tpl.CreatedAt.IsZero() {
		payload.CreatedAt = tpl.CreatedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func (h *TemplateHandlers) writeTemplateError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, certificates.ErrInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, certificates.ErrTemplateNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("template_not_found", "template not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}
