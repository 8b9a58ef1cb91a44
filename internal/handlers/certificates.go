package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/code-networkershome/certificate-generator/internal/certificates"
	"github.com/code-networkershome/certificate-generator/internal/editor"
	"github.com/code-networkershome/certificate-generator/internal/platform/httpx"
)

const maxCertificateRequestBody = 1 << 20

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// CertificateHandlers exposes preview, finalize, and history endpoints.
type CertificateHandlers struct {
	service *certificates.Service
}

// NewCertificateHandlers constructs a new CertificateHandlers instance.
func NewCertificateHandlers(service *certificates.Service) *CertificateHandlers {
	return &CertificateHandlers{service: service}
}

// Routes registers the /certificate endpoints.
func (h *CertificateHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/preview", h.preview)
	r.Post("/finalize", h.finalize)
	r.Get("/history", h.history)
}

type previewRequest struct {
	TemplateID      string                 `json:"template_id"`
	CertificateData *editor.FieldMap       `json:"certificate_data"`
	Positions       []editor.PositionEntry `json:"positions"`
	Styles          []editor.StyleEntry    `json:"styles"`
}

type previewResponse struct {
	HTML         string `json:"html"`
	TemplateID   string `json:"template_id"`
	TemplateName string `json:"template_name"`
}

func (h *CertificateHandlers) preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "certificate service unavailable", http.StatusServiceUnavailable))
		return
	}

	var payload previewRequest
	if !decodeRequest(w, r, &payload) {
		return
	}
	if payload.CertificateData == nil {
		payload.CertificateData = editor.NewFieldMap()
	}

	out, err := h.service.Preview(ctx, certificates.PreviewInput{
		TemplateID: strings.TrimSpace(payload.TemplateID),
		Data:       payload.CertificateData,
		Positions:  payload.Positions,
		Styles:     payload.Styles,
	})
	if err != nil {
		h.writeCertificateError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, previewResponse{
		HTML:         out.HTML,
		TemplateID:   out.TemplateID,
		TemplateName: out.TemplateName,
	})
}

type finalizeRequest struct {
	TemplateID      string                 `json:"template_id"`
	CertificateData *editor.FieldMap       `json:"certificate_data"`
	Positions       []editor.PositionEntry `json:"positions"`
	Styles          []editor.StyleEntry    `json:"styles"`
	OutputFormats   []string               `json:"output_formats"`
}

type finalizeResponse struct {
	Success       bool              `json:"success"`
	CertificateID string            `json:"certificate_id"`
	DownloadURLs  map[string]string `json:"download_urls"`
	GeneratedAt   string            `json:"generated_at"`
}

func (h *CertificateHandlers) finalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "certificate service unavailable", http.StatusServiceUnavailable))
		return
	}

	var payload finalizeRequest
	if !decodeRequest(w, r, &payload) {
		return
	}
	if payload.CertificateData == nil {
		payload.CertificateData = editor.NewFieldMap()
	}

	out, err := h.service.Generate(ctx, certificates.GenerateInput{
		TemplateID:    strings.TrimSpace(payload.TemplateID),
		Owner:         ownerID(r),
		Data:          payload.CertificateData,
		Positions:     payload.Positions,
		Styles:        payload.Styles,
		OutputFormats: payload.OutputFormats,
	})
	if err != nil {
		h.writeCertificateError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, finalizeResponse{
		Success:       true,
		CertificateID: out.CertificateID,
		DownloadURLs:  out.DownloadURLs,
		GeneratedAt:   out.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

type historyEntryPayload struct {
	ID            string            `json:"id"`
	CertificateID string            `json:"certificate_id"`
	StudentName   string            `json:"student_name"`
	CourseName    string            `json:"course_name"`
	IssueDate     string            `json:"issue_date"`
	Status        string            `json:"status"`
	GeneratedAt   string            `json:"generated_at"`
	DownloadURLs  map[string]string `json:"download_urls"`
}

type historyResponse struct {
	Certificates []historyEntryPayload `json:"certificates"`
	Total        int                   `json:"total"`
}

func (h *CertificateHandlers) history(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "certificate service unavailable", http.StatusServiceUnavailable))
		return
	}

	limit := defaultHistoryLimit
	if limitRaw := strings.TrimSpace(r.URL.Query().Get("limit")); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed < 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be a non-negative integer", http.StatusBadRequest))
			return
		}
		if parsed > maxHistoryLimit {
			parsed = maxHistoryLimit
		}
		if parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.service.History(ctx, ownerID(r), limit)
	if err != nil {
		h.writeCertificateError(ctx, w, err)
		return
	}

	payload := historyResponse{Certificates: make([]historyEntryPayload, 0, len(entries))}
	for _, entry := range entries {
		studentName, _ := entry.Data.Get("student_name")
		courseName, _ := entry.Data.Get("course_name")
		issueDate, _ := entry.Data.Get("issue_date")
		payload.Certificates = append(payload.Certificates, historyEntryPayload{
			ID:            entry.ID,
			CertificateID: entry.CertificateID,
			StudentName:   studentName,
			CourseName:    courseName,
			IssueDate:     issueDate,
			Status:        entry.Status,
			GeneratedAt:   entry.GeneratedAt.UTC().Format(time.RFC3339),
			DownloadURLs:  entry.DownloadURLs,
		})
	}
	payload.Total = len(payload.Certificates)

	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CertificateHandlers) writeCertificateError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, certificates.ErrInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, certificates.ErrTemplateNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("template_not_found", "template not found", http.StatusNotFound))
	case errors.Is(err, certificates.ErrCertificateExists):
		httpx.WriteError(ctx, w, httpx.NewError("certificate_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}

// ownerID reads the optional owner scoping header. Empty means unscoped.
func ownerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Owner-ID"))
}

// decodeRequest reads a bounded JSON body into dst, writing the error
// response itself on failure.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()

	reader := http.MaxBytesReader(w, r.Body, maxCertificateRequestBody)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest))
		return false
	}
	if decoder.More() {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid request body: extraneous data", http.StatusBadRequest))
		return false
	}
	return true
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
