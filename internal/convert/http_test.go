package convert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "pdf", want: "pdf"},
		{in: "PNG", want: "png"},
		{in: " jpeg ", want: "jpg"},
		{in: "jpg", want: "jpg"},
		{in: "docx", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		got, err := NormalizeFormat(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedFormat, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestHTTPConverterConvert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "pdf", req.Format)
		assert.Contains(t, req.HTML, "Jane Roe")

		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer srv.Close()

	conv, err := NewHTTPConverter(srv.URL, nil, 0)
	require.NoError(t, err)

	out, err := conv.Convert(context.Background(), Request{HTML: "<p>Jane Roe</p>", Format: "PDF"})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 fake"), out)
}

func TestHTTPConverterErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"code":"render_failed","message":"page too large"}`))
	}))
	defer srv.Close()

	conv, err := NewHTTPConverter(srv.URL, nil, 0)
	require.NoError(t, err)

	_, err = conv.Convert(context.Background(), Request{HTML: "<p>x</p>", Format: "png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render_failed")
	assert.Contains(t, err.Error(), "page too large")
}

func TestHTTPConverterEmptyArtefact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	conv, err := NewHTTPConverter(srv.URL, nil, 0)
	require.NoError(t, err)

	_, err = conv.Convert(context.Background(), Request{HTML: "<p>x</p>", Format: "pdf"})
	assert.Error(t, err)
}

func TestHTTPConverterRejectsUnsupportedFormatLocally(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	conv, err := NewHTTPConverter(srv.URL, nil, 0)
	require.NoError(t, err)

	_, err = conv.Convert(context.Background(), Request{HTML: "<p>x</p>", Format: "docx"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, called)
}

func TestNewHTTPConverterValidation(t *testing.T) {
	_, err := NewHTTPConverter("   ", nil, 0)
	assert.Error(t, err)
}
