// Package status holds the transient transaction toast and fans every
// change out to websocket subscribers.
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kjannette/energy-market-backend/internal/models"
)

// Broadcaster receives every status change.
type Broadcaster interface {
	Broadcast(models.TransactionStatus)
}

// Board keeps the single visible toast. Success and error toasts dismiss
// themselves after their TTL; pending toasts stay until replaced.
type Board struct {
	successTTL time.Duration
	errorTTL   time.Duration
	sink       Broadcaster

	mu      sync.Mutex
	current models.TransactionStatus
	timer   *time.Timer
}

func NewBoard(successTTL, errorTTL time.Duration, sink Broadcaster) *Board {
	return &Board{
		successTTL: successTTL,
		errorTTL:   errorTTL,
		sink:       sink,
		current:    models.HiddenStatus(),
	}
}

func (b *Board) Pending(msg string) string { return b.show(models.StatusPending, msg) }
func (b *Board) Success(msg string) string { return b.show(models.StatusSuccess, msg) }
func (b *Board) Error(msg string) string   { return b.show(models.StatusError, msg) }

func (b *Board) show(kind models.StatusKind, msg string) string {
	st := models.TransactionStatus{
		ID:      uuid.NewString(),
		Visible: true,
		Status:  kind,
		Message: msg,
	}

	var ttl time.Duration
	switch kind {
	case models.StatusSuccess:
		ttl = b.successTTL
	case models.StatusError:
		ttl = b.errorTTL
	}

	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if ttl > 0 {
		exp := time.Now().Add(ttl).UTC()
		st.ExpiresAt = &exp
		id := st.ID
		b.timer = time.AfterFunc(ttl, func() { b.Dismiss(id) })
	}
	b.current = st
	b.publish(st)
	b.mu.Unlock()

	if kind == models.StatusError {
		fmt.Printf("[STATUS] %s: %s\n", kind, msg)
	}
	return st.ID
}

// Dismiss hides the toast only if id is still the one on screen, so a late
// timer never clears a newer message.
func (b *Board) Dismiss(id string) bool {
	b.mu.Lock()
	if b.current.ID != id || !b.current.Visible {
		b.mu.Unlock()
		return false
	}
	b.current = models.HiddenStatus()
	b.publish(b.current)
	b.mu.Unlock()
	return true
}

// Clear hides whatever is showing and stops its timer.
func (b *Board) Clear() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	wasVisible := b.current.Visible
	b.current = models.HiddenStatus()
	if wasVisible {
		b.publish(b.current)
	}
	b.mu.Unlock()
}

func (b *Board) Current() models.TransactionStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// publish runs under mu so subscribers see changes in order.
func (b *Board) publish(st models.TransactionStatus) {
	if b.sink != nil {
		b.sink.Broadcast(st)
	}
}
