// Package renderclient provides HTTP implementations of the editor's
// preview and finalize clients against the certificate API.
package renderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/code-networkershome/certificate-generator/internal/editor"
)

const (
	previewPath  = "/api/v1/certificate/preview"
	finalizePath = "/api/v1/certificate/finalize"

	maxResponseSize = 32 << 20
)

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client calls the certificate API's preview and finalize endpoints. It is
// safe for concurrent use.
type Client struct {
	base   *url.URL
	client HTTPClient
}

var (
	_ editor.PreviewClient  = (*Client)(nil)
	_ editor.FinalizeClient = (*Client)(nil)
)

// New validates the base URL and constructs a client. A nil httpClient gets
// a default with the given timeout.
func New(baseURL string, httpClient HTTPClient, timeout time.Duration) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errors.New("renderclient: base URL is required")
	}
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("renderclient: parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("renderclient: base URL %q must be absolute", trimmed)
	}
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{base: base, client: httpClient}, nil
}

// RenderPreview posts the session state and returns the rendered document.
func (c *Client) RenderPreview(ctx context.Context, req editor.PreviewRequest) (editor.PreviewResult, error) {
	var out editor.PreviewResult
	if err := c.postJSON(ctx, previewPath, req, &out); err != nil {
		return editor.PreviewResult{}, err
	}
	return out, nil
}

type finalizePayload struct {
	Success       bool              `json:"success"`
	CertificateID string            `json:"certificate_id"`
	DownloadURLs  map[string]string `json:"download_urls"`
	GeneratedAt   string            `json:"generated_at"`
}

// Finalize submits the session state for certificate generation.
func (c *Client) Finalize(ctx context.Context, req editor.FinalizeRequest) (editor.FinalizeResult, error) {
	var payload finalizePayload
	if err := c.postJSON(ctx, finalizePath, req, &payload); err != nil {
		return editor.FinalizeResult{}, err
	}
	if !payload.Success || payload.CertificateID == "" {
		return editor.FinalizeResult{}, errors.New("renderclient: finalize response missing certificate id")
	}
	return editor.FinalizeResult{
		CertificateID: payload.CertificateID,
		DownloadURLs:  payload.DownloadURLs,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return fmt.Errorf("renderclient: encode request: %w", err)
	}

	endpoint := c.base.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("renderclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("renderclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.errorFromResponse(resp)
	}

	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize))
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("renderclient: decode response: %w", err)
	}
	return nil
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	type errorPayload struct {
		Code    string `json:"error"`
		Message string `json:"message"`
	}
	var payload errorPayload
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
			return fmt.Errorf("renderclient: api error (%s): %s", strings.TrimSpace(payload.Code), payload.Message)
		}
	}
	if len(body) > 0 {
		return fmt.Errorf("renderclient: api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("renderclient: api error (%d): %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
