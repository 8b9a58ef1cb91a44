package convert

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
)

// maxArtefactSize caps how much of a conversion response is read.
const maxArtefactSize = 64 << 20

// HTTPClient matches the subset of http.Client used by HTTPConverter.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPConverter talks to a document conversion service that accepts HTML and
// returns the artefact bytes.
type HTTPConverter struct {
	endpoint string
	client   HTTPClient
}

// NewHTTPConverter validates the endpoint and constructs a converter. A nil
// client gets a default with the given timeout.
func NewHTTPConverter(endpoint string, client HTTPClient, timeout time.Duration) (*HTTPConverter, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("convert: endpoint is required")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("convert: parse endpoint: %w", err)
	}
	if client == nil {
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPConverter{endpoint: endpoint, client: client}, nil
}

// Convert posts the conversion request and returns the artefact bytes.
func (c *HTTPConverter) Convert(ctx context.Context, req Request) ([]byte, error) {
	format, err := NormalizeFormat(req.Format)
	if err != nil {
		return nil, err
	}
	req.Format = format

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(req); err != nil {
		return nil, fmt.Errorf("convert: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("convert: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", ContentType(format))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("convert: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp)
	}

	artefact, err := io.ReadAll(io.LimitReader(resp.Body, maxArtefactSize))
	if err != nil {
		return nil, fmt.Errorf("convert: read artefact: %w", err)
	}
	if len(artefact) == 0 {
		return nil, errors.New("convert: empty artefact in response")
	}
	return artefact, nil
}

func (c *HTTPConverter) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	type errorPayload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	var payload errorPayload
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
			return fmt.Errorf("convert: converter error (%s): %s", strings.TrimSpace(payload.Code), payload.Message)
		}
	}
	if len(body) > 0 {
		return fmt.Errorf("convert: converter error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("convert: converter error (%d): %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
