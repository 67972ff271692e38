package bot

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Button is one inline action attached to a message. Data is an opaque
// callback token echoed back when the button is pressed.
type Button struct {
	Text string
	Data string
}

// Messenger sends text to a chat account. The concrete transport (Telegram
// or anything else that can deliver text and buttons to an account id) is an
// external adapter; everything in this package is transport-agnostic.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
	SendButtons(ctx context.Context, chatID int64, text string, buttons []Button) error
}

// Throttled wraps a messenger with a process-wide send rate limit, since
// chat transports reject clients that flood them.
func Throttled(m Messenger, perSecond float64, burst int) Messenger {
	return &throttled{
		inner:   m,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

type throttled struct {
	inner   Messenger
	limiter *rate.Limiter
}

func (t *throttled) Send(ctx context.Context, chatID int64, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for send slot: %w", err)
	}
	return t.inner.Send(ctx, chatID, text)
}

func (t *throttled) SendButtons(ctx context.Context, chatID int64, text string, buttons []Button) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for send slot: %w", err)
	}
	return t.inner.SendButtons(ctx, chatID, text, buttons)
}
