package handshake

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
)

// Hook is called for every handshake, including failed ones, with the
// in-progress data. Hooks may set a disconnect reason to reject the player.
type Hook interface {
	Handle(ctx context.Context, d *Data)
}

// HookFunc is a func that implements Hook.
type HookFunc func(ctx context.Context, d *Data)

// Handle implements Hook.
func (f HookFunc) Handle(ctx context.Context, d *Data) { f(ctx, d) }

// Hooks is an ordered registry of handshake hooks.
type Hooks struct {
	mu    sync.RWMutex
	next  int
	hooks []registeredHook
}

type registeredHook struct {
	id   int
	hook Hook
}

// Register adds a hook that is called after the previously registered
// hooks and returns a func to remove it again.
func (h *Hooks) Register(hook Hook) (unregister func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.hooks = append(h.hooks, registeredHook{id: id, hook: hook})
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, r := range h.hooks {
			if r.id == id {
				h.hooks = append(h.hooks[:i:i], h.hooks[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of registered hooks.
func (h *Hooks) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hooks)
}

// call runs every hook in registration order. A panicking hook
// is logged and does not stop the remaining hooks.
func (h *Hooks) call(ctx context.Context, d *Data) {
	h.mu.RLock()
	hooks := h.hooks
	h.mu.RUnlock()
	for _, r := range hooks {
		callHook(ctx, r.hook, d)
	}
}

func callHook(ctx context.Context, hook Hook, d *Data) {
	defer func() {
		if r := recover(); r != nil {
			logr.FromContextOrDiscard(ctx).Error(fmt.Errorf("%v", r),
				"recovered from panic in handshake hook", "hook", fmt.Sprintf("%T", hook))
		}
	}()
	hook.Handle(ctx, d)
}

// HandshakeEvent is fired after the hooks were called so that event
// subscribers can intervene with priorities.
type HandshakeEvent struct {
	ctx  context.Context
	data *Data
}

// Context is the context of the handshake.
func (e *HandshakeEvent) Context() context.Context { return e.ctx }

// Data returns the mutable handshake data.
func (e *HandshakeEvent) Data() *Data { return e.data }
