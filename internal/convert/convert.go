// Package convert adapts rendered certificate HTML into downloadable
// artefacts via an external document conversion service.
package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Supported output formats.
const (
	FormatPDF = "pdf"
	FormatPNG = "png"
	FormatJPG = "jpg"
)

// ErrUnsupportedFormat is returned for formats the converter cannot produce.
var ErrUnsupportedFormat = errors.New("convert: unsupported format")

var contentTypes = map[string]string{
	FormatPDF: "application/pdf",
	FormatPNG: "image/png",
	FormatJPG: "image/jpeg",
}

// Request describes one conversion: the print-ready HTML and the desired
// output format. Page dimensions are in CSS pixels at 96 DPI.
type Request struct {
	HTML       string  `json:"html"`
	Format     string  `json:"format"`
	PageWidth  float64 `json:"page_width,omitempty"`
	PageHeight float64 `json:"page_height,omitempty"`
}

// Converter produces one artefact per request.
type Converter interface {
	Convert(ctx context.Context, req Request) ([]byte, error)
}

// NormalizeFormat lower-cases and validates a requested output format,
// folding the jpeg alias onto jpg.
func NormalizeFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "jpeg" {
		f = FormatJPG
	}
	if _, ok := contentTypes[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return f, nil
}

// ContentType returns the MIME type for a normalised format.
func ContentType(format string) string {
	if ct, ok := contentTypes[format]; ok {
		return ct
	}
	return "application/octet-stream"
}
