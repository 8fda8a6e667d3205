// Package screens keeps the per-session state of open pages. Every load of
// a page takes a generation ticket and only the newest ticket may commit,
// so a slow older response can never overwrite a newer one.
package screens

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"luchaserver/models"
)

// ErrStale is returned for a load that was superseded or unmounted.
var ErrStale = errors.New("stale page load discarded")

// Loader produces a page view, normally planner.Planner.
type Loader interface {
	Load(ctx context.Context, sess *models.Session, page, id string) (any, error)
}

type slotKey struct {
	sid  string
	page string
}

// slot is one mounted page of one session.
type slot struct {
	gen      uint64
	inflight map[uint64]context.CancelFunc
	view     any
	touched  time.Time
}

// Ticket identifies one load.
type Ticket struct {
	key    slotKey
	slot   *slot
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *Ticket) Context() context.Context { return t.ctx }

type Registry struct {
	mu      sync.Mutex
	slots   map[slotKey]*slot
	loader  Loader
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewRegistry(loader Loader, timeout time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		slots:   make(map[slotKey]*slot),
		loader:  loader,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// PageKey names a page instance; detail pages include their id.
func PageKey(page, id string) string {
	if id == "" {
		return page
	}
	return page + "/" + id
}

// Begin mounts the page if needed and issues the next generation.
func (r *Registry) Begin(parent context.Context, sid, page string) *Ticket {
	ctx, cancel := context.WithTimeout(parent, r.timeout)

	r.mu.Lock()
	defer r.mu.Unlock()
	key := slotKey{sid: sid, page: page}
	s, ok := r.slots[key]
	if !ok {
		s = &slot{inflight: make(map[uint64]context.CancelFunc)}
		r.slots[key] = s
	}
	s.gen++
	s.inflight[s.gen] = cancel
	s.touched = r.now()
	return &Ticket{key: key, slot: s, gen: s.gen, ctx: ctx, cancel: cancel}
}

// current reports whether t is still the newest load of a mounted page.
// Caller holds r.mu.
func (r *Registry) current(t *Ticket) bool {
	s, ok := r.slots[t.key]
	return ok && s == t.slot && s.gen == t.gen
}

// Commit stores view if t is still current and reports whether it did.
func (r *Registry) Commit(t *Ticket, view any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.current(t) {
		return false
	}
	t.slot.view = view
	t.slot.touched = r.now()
	return true
}

// Done releases the ticket's context. Always call it.
func (r *Registry) Done(t *Ticket) {
	t.cancel()
	r.mu.Lock()
	delete(t.slot.inflight, t.gen)
	r.mu.Unlock()
}

// Load runs one page load through a ticket.
func (r *Registry) Load(ctx context.Context, sess *models.Session, page, id string) (any, error) {
	t := r.Begin(ctx, sess.SID, PageKey(page, id))
	defer r.Done(t)

	view, err := r.loader.Load(t.ctx, sess, page, id)
	if err != nil {
		r.mu.Lock()
		stale := !r.current(t)
		r.mu.Unlock()
		if stale {
			return nil, ErrStale
		}
		return nil, err
	}
	if !r.Commit(t, view) {
		r.logger.Debug("dropped stale page load", zap.String("page", t.key.page), zap.Uint64("gen", t.gen))
		return nil, ErrStale
	}
	return view, nil
}

// Refresh reloads a page after a write.
func (r *Registry) Refresh(ctx context.Context, sess *models.Session, page, id string) (any, error) {
	return r.Load(ctx, sess, page, id)
}

// Latest returns the last committed view of a page.
func (r *Registry) Latest(sid, page string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotKey{sid: sid, page: page}]
	if !ok || s.view == nil {
		return nil, false
	}
	return s.view, true
}

// Unmount drops the page and cancels its in-flight loads. Results that
// arrive afterwards are discarded.
func (r *Registry) Unmount(sid, page string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unmount(slotKey{sid: sid, page: page})
}

func (r *Registry) unmount(key slotKey) {
	s, ok := r.slots[key]
	if !ok {
		return
	}
	for _, cancel := range s.inflight {
		cancel()
	}
	delete(r.slots, key)
}

// SessionInvalidated unmounts every page of sid.
func (r *Registry) SessionInvalidated(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.slots {
		if key.sid == sid {
			r.unmount(key)
		}
	}
}

// Prune unmounts idle pages with nothing in flight and returns how many.
func (r *Registry) Prune(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, s := range r.slots {
		if len(s.inflight) == 0 && s.touched.Before(cutoff) {
			delete(r.slots, key)
			n++
		}
	}
	return n
}

// Len returns the number of mounted pages.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
