package renderclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-networkershome/certificate-generator/internal/editor"
)

func TestNewValidation(t *testing.T) {
	_, err := New("", nil, 0)
	require.Error(t, err)

	_, err = New("/relative", nil, 0)
	require.Error(t, err)

	client, err := New("http://localhost:8080", nil, 0)
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestRenderPreview(t *testing.T) {
	var captured struct {
		TemplateID string                 `json:"template_id"`
		Data       *editor.FieldMap       `json:"certificate_data"`
		Positions  []editor.PositionEntry `json:"positions"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/certificate/preview", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"html":          "<html><body><p>rendered</p></body></html>",
			"template_id":   "classic-blue",
			"template_name": "Classic Blue",
		})
	}))
	defer srv.Close()

	client, err := New(srv.URL, nil, 0)
	require.NoError(t, err)

	data := editor.NewFieldMap()
	data.Set("student_name", "Jane Roe")

	res, err := client.RenderPreview(context.Background(), editor.PreviewRequest{
		TemplateID: "classic-blue",
		Data:       data,
		Positions:  []editor.PositionEntry{{ElementID: "student_name", X: 10, Y: 20}},
	})
	require.NoError(t, err)

	assert.Equal(t, "classic-blue", res.TemplateID)
	assert.Equal(t, "Classic Blue", res.TemplateName)
	assert.Contains(t, res.HTML, "rendered")

	assert.Equal(t, "classic-blue", captured.TemplateID)
	name, _ := captured.Data.Get("student_name")
	assert.Equal(t, "Jane Roe", name)
	require.Len(t, captured.Positions, 1)
	assert.Equal(t, 10.0, captured.Positions[0].X)
}

func TestRenderPreviewAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "template_not_found",
			"message": "template not found",
			"status":  http.StatusNotFound,
		})
	}))
	defer srv.Close()

	client, err := New(srv.URL, nil, 0)
	require.NoError(t, err)

	_, err = client.RenderPreview(context.Background(), editor.PreviewRequest{TemplateID: "missing", Data: editor.NewFieldMap()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template_not_found")
	assert.Contains(t, err.Error(), "template not found")
}

func TestFinalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/certificate/finalize", r.URL.Path)

		var req struct {
			OutputFormats []string `json:"output_formats"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"pdf", "png"}, req.OutputFormats)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":        true,
			"certificate_id": "NH-2026-00042",
			"download_urls": map[string]string{
				"pdf": "http://localhost:8080/downloads/2026/08/26/NH-2026-00042.pdf",
			},
			"generated_at": "2026-08-26T12:00:00Z",
		})
	}))
	defer srv.Close()

	client, err := New(srv.URL, nil, 0)
	require.NoError(t, err)

	res, err := client.Finalize(context.Background(), editor.FinalizeRequest{
		TemplateID:    "classic-blue",
		Data:          editor.NewFieldMap(),
		OutputFormats: []string{"pdf", "png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "NH-2026-00042", res.CertificateID)
	assert.Contains(t, res.DownloadURLs["pdf"], "/downloads/")
}

func TestFinalizeMissingCertificateID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))
	defer srv.Close()

	client, err := New(srv.URL, nil, 0)
	require.NoError(t, err)

	_, err = client.Finalize(context.Background(), editor.FinalizeRequest{TemplateID: "classic-blue", Data: editor.NewFieldMap()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing certificate id")
}
