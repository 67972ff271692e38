package scan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPDecoder delegates QR detection to an external decode service. The
// service takes a PNG body and answers with the code's text payload, or 404
// when no code is found.
type HTTPDecoder struct {
	url    string
	client *http.Client
}

// NewHTTPDecoder creates a decoder talking to the given decode endpoint.
func NewHTTPDecoder(url string) *HTTPDecoder {
	return &HTTPDecoder{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Decode implements Decoder.
func (d *HTTPDecoder) Decode(ctx context.Context, image []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("building decode request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling decode service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return "", ErrNoCode
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("decode service answered %s", resp.Status)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("reading decode response: %w", err)
	}
	return strings.TrimSpace(string(payload)), nil
}
