package scan

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPDecoderReturnsPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			t.Error("decoder received empty image body")
		}
		io.WriteString(w, "42 Avermedia LGP\n")
	}))
	t.Cleanup(server.Close)

	d := NewHTTPDecoder(server.URL)
	payload, err := d.Decode(context.Background(), []byte("image bytes"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if payload != "42 Avermedia LGP" {
		t.Errorf("unexpected payload: %q", payload)
	}
}

func TestHTTPDecoderNoCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	d := NewHTTPDecoder(server.URL)
	_, err := d.Decode(context.Background(), []byte("image bytes"))
	if !errors.Is(err, ErrNoCode) {
		t.Errorf("expected ErrNoCode, got %v", err)
	}
}

func TestHTTPDecoderServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	d := NewHTTPDecoder(server.URL)
	_, err := d.Decode(context.Background(), []byte("image bytes"))
	if err == nil || errors.Is(err, ErrNoCode) {
		t.Errorf("expected a hard error, got %v", err)
	}
}
