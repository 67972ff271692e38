package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// The chat transport itself (Telegram or any compatible bridge) runs as a
// separate process. Inbound updates arrive on a webhook; outbound messages
// are posted back to the bridge's send endpoint.

type webhookUpdate struct {
	ChatID   int64  `json:"chat_id"`
	Name     string `json:"name,omitempty"`
	Handle   string `json:"handle,omitempty"`
	Text     string `json:"text,omitempty"`
	Photo    []byte `json:"photo,omitempty"` // base64 in JSON
	Callback string `json:"callback,omitempty"`
}

// WebhookHandler accepts bridge updates on POST and feeds them to the
// dispatcher. Updates are handled synchronously so the bridge's delivery
// order is preserved per chat.
func WebhookHandler(d *Dispatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var u webhookUpdate
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			http.Error(w, "invalid update body", http.StatusBadRequest)
			return
		}
		r.Body.Close()

		if u.ChatID == 0 {
			http.Error(w, "chat_id required", http.StatusBadRequest)
			return
		}

		d.Dispatch(r.Context(), Update{
			ChatID:   u.ChatID,
			Name:     u.Name,
			Handle:   u.Handle,
			Text:     u.Text,
			Photo:    u.Photo,
			Callback: u.Callback,
		})
		w.WriteHeader(http.StatusAccepted)
	})
}

type outboundMessage struct {
	ChatID  int64    `json:"chat_id"`
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

// httpMessenger posts outbound messages to the bridge's send endpoint.
type httpMessenger struct {
	url    string
	client *http.Client
}

// NewHTTPMessenger creates a messenger that delivers through the chat bridge.
func NewHTTPMessenger(url string) Messenger {
	return &httpMessenger{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *httpMessenger) Send(ctx context.Context, chatID int64, text string) error {
	return m.post(ctx, outboundMessage{ChatID: chatID, Text: text})
}

func (m *httpMessenger) SendButtons(ctx context.Context, chatID int64, text string, buttons []Button) error {
	return m.post(ctx, outboundMessage{ChatID: chatID, Text: text, Buttons: buttons})
}

func (m *httpMessenger) post(ctx context.Context, msg outboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("bridge rejected message: %s", resp.Status)
	}
	return nil
}
