package bot

import (
	"context"
	"log/slog"
	"sync"
)

// Update is one inbound chat event, normalized away from any particular
// transport. Exactly one of Text, Photo, or Callback is set.
type Update struct {
	ChatID   int64
	Name     string // display name reported by the transport
	Handle   string // optional account handle, without the "@"
	Text     string
	Photo    []byte
	Callback string
}

// Dispatcher serializes update handling per chat id. Events from the same
// requester are processed in arrival order even if the transport delivers
// them on different goroutines; events from different requesters run
// independently.
type Dispatcher struct {
	bot *Bot

	mu    sync.Mutex
	chats map[int64]*sync.Mutex
}

// NewDispatcher creates a dispatcher in front of the bot.
func NewDispatcher(b *Bot) *Dispatcher {
	return &Dispatcher{bot: b, chats: make(map[int64]*sync.Mutex)}
}

// Dispatch handles one update under the per-chat lock.
func (d *Dispatcher) Dispatch(ctx context.Context, u Update) {
	lock := d.chatLock(u.ChatID)
	lock.Lock()
	defer lock.Unlock()

	if err := d.bot.Handle(ctx, u); err != nil {
		slog.Error("update handling failed", "chat", u.ChatID, "error", err)
	}
}

func (d *Dispatcher) chatLock(chatID int64) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.chats[chatID]
	if !ok {
		lock = &sync.Mutex{}
		d.chats[chatID] = lock
	}
	return lock
}
