// Package inflight tracks running generations so they can be cancelled by
// request id, on this instance or, with Redis, on any instance.
package inflight

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrUnknownRequest   = errors.New("inflight: no such request")
	ErrNotOwner         = errors.New("inflight: request belongs to another user")
	ErrDuplicateRequest = errors.New("inflight: request id already in flight")
)

type entry struct {
	owner  string
	cancel context.CancelFunc
}

type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register derives a cancellable context for requestID. The returned release
// must be called when the generation ends; it also cancels the context.
// An id that is still registered is refused with ErrDuplicateRequest,
// whoever owns it.
func (r *Registry) Register(ctx context.Context, requestID, owner string) (context.Context, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[requestID]; ok {
		return nil, nil, ErrDuplicateRequest
	}

	ctx, cancel := context.WithCancel(ctx)
	e := &entry{owner: owner, cancel: cancel}
	r.entries[requestID] = e

	return ctx, func() {
		r.mu.Lock()
		if r.entries[requestID] == e {
			delete(r.entries, requestID)
		}
		r.mu.Unlock()
		cancel()
	}, nil
}

// Cancel stops requestID when it runs here and belongs to owner.
func (r *Registry) Cancel(requestID, owner string) error {
	r.mu.Lock()
	e, ok := r.entries[requestID]
	if ok && e.owner == owner {
		delete(r.entries, requestID)
	}
	r.mu.Unlock()

	if !ok {
		return ErrUnknownRequest
	}
	if e.owner != owner {
		return ErrNotOwner
	}
	e.cancel()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
