package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/plateful/recipe-companion/internal/api"
	"github.com/plateful/recipe-companion/internal/model"
)

// Inbox holds the notification list backing a screen and applies
// optimistic mutations: each mutation flips local state first, issues
// the server call, and applies the inverse if the call fails. Rollback
// logic lives next to the forward action so it can be tested in
// isolation.
type Inbox struct {
	svc    api.Service
	token  string
	logger *slog.Logger

	mu    sync.Mutex
	items []model.Notification
}

// NewInbox creates an empty Inbox; call Refresh to populate it.
func NewInbox(svc api.Service, token string, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{svc: svc, token: token, logger: logger}
}

// Refresh replaces the list with the server's current view.
func (in *Inbox) Refresh(ctx context.Context) error {
	records, err := in.svc.FetchNotifications(ctx, in.token)
	if err != nil {
		return fmt.Errorf("refreshing notifications: %w", err)
	}

	in.mu.Lock()
	in.items = records
	in.mu.Unlock()
	return nil
}

// All returns a copy of the current list in server order.
func (in *Inbox) All() []model.Notification {
	in.mu.Lock()
	defer in.mu.Unlock()

	out := make([]model.Notification, len(in.items))
	copy(out, in.items)
	return out
}

// Unread returns the notifications not yet marked read. The filtered
// view reflects optimistic flips and their reverts.
func (in *Inbox) Unread() []model.Notification {
	in.mu.Lock()
	defer in.mu.Unlock()

	var out []model.Notification
	for _, n := range in.items {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out
}

// MarkRead optimistically flips the Read flag, then confirms with the
// server. On failure the flag reverts to its previous value and the
// error is returned for the caller to surface.
func (in *Inbox) MarkRead(ctx context.Context, id string) error {
	prev, ok := in.setRead(id, true)
	if !ok {
		return fmt.Errorf("notification %s not found", id)
	}

	if err := in.svc.MarkNotificationRead(ctx, in.token, id); err != nil {
		in.setRead(id, prev)
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}
	return nil
}

// Delete optimistically removes the notification, then confirms with
// the server. On failure it is re-inserted at its original position.
func (in *Inbox) Delete(ctx context.Context, id string) error {
	removed, idx, ok := in.remove(id)
	if !ok {
		return fmt.Errorf("notification %s not found", id)
	}

	if err := in.svc.DeleteNotification(ctx, in.token, id); err != nil {
		in.insertAt(idx, removed)
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	return nil
}

// setRead flips the Read flag for id and returns its previous value.
func (in *Inbox) setRead(id string, read bool) (prev bool, ok bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	for i := range in.items {
		if in.items[i].ID == id {
			prev = in.items[i].Read
			in.items[i].Read = read
			return prev, true
		}
	}
	return false, false
}

// remove deletes the notification with id, returning it and its index.
func (in *Inbox) remove(id string) (model.Notification, int, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	for i := range in.items {
		if in.items[i].ID == id {
			removed := in.items[i]
			in.items = append(in.items[:i], in.items[i+1:]...)
			return removed, i, true
		}
	}
	return model.Notification{}, 0, false
}

// insertAt restores a notification at its original position.
func (in *Inbox) insertAt(idx int, n model.Notification) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if idx < 0 || idx > len(in.items) {
		idx = len(in.items)
	}
	in.items = append(in.items, model.Notification{})
	copy(in.items[idx+1:], in.items[idx:])
	in.items[idx] = n
}
