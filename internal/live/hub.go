// Package live shares one upstream live query per key between any number of
// subscribers. Each subscriber gets a channel holding at most one pending
// snapshot; a slow reader only ever misses intermediate states, never the
// latest one.
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrHubClosed = errors.New("live hub is closed")

// Source opens the upstream query for a key. The returned channel must be
// closed when ctx ends or the query fails.
type Source[T any] func(ctx context.Context) (<-chan T, error)

type feed[T any] struct {
	cancel    context.CancelFunc
	subs      map[string]chan T
	latest    T
	hasLatest bool
}

type Hub[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.Mutex
	feeds  map[string]*feed[T]
	closed bool
}

func NewHub[T any](ctx context.Context, logger *slog.Logger) *Hub[T] {
	ctx, cancel := context.WithCancel(ctx)
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub[T]{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		feeds:  make(map[string]*feed[T]),
	}
}

// Subscribe attaches subscriberID to the feed for key, opening the source if
// this is the first subscriber. Subscribing twice with the same id returns
// the existing channel. The channel is closed on Unsubscribe, Drop, Close or
// when the source ends.
func (h *Hub[T]) Subscribe(key, subscriberID string, open Source[T]) (<-chan T, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if f, ok := h.feeds[key]; ok {
		ch := h.attachLocked(f, subscriberID)
		h.mu.Unlock()
		return ch, nil
	}
	h.mu.Unlock()

	// open outside the lock, the source may block on the network
	ctx, cancel := context.WithCancel(h.ctx)
	src, err := open(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		cancel()
		return nil, ErrHubClosed
	}
	if f, ok := h.feeds[key]; ok {
		// lost the race to another first subscriber
		cancel()
		return h.attachLocked(f, subscriberID), nil
	}

	f := &feed[T]{cancel: cancel, subs: make(map[string]chan T)}
	h.feeds[key] = f
	ch := h.attachLocked(f, subscriberID)
	go h.pump(key, f, src)
	return ch, nil
}

func (h *Hub[T]) attachLocked(f *feed[T], subscriberID string) chan T {
	if ch, ok := f.subs[subscriberID]; ok {
		return ch
	}
	ch := make(chan T, 1)
	if f.hasLatest {
		ch <- f.latest
	}
	f.subs[subscriberID] = ch
	return ch
}

func (h *Hub[T]) pump(key string, f *feed[T], src <-chan T) {
	for v := range src {
		h.mu.Lock()
		f.latest = v
		f.hasLatest = true
		for _, ch := range f.subs {
			offer(ch, v)
		}
		h.mu.Unlock()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.feeds[key] != f {
		return
	}
	h.logger.Warn("live query ended", "key", key)
	delete(h.feeds, key)
	f.cancel()
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

// Unsubscribe detaches subscriberID from key. The source is cancelled when
// its last subscriber leaves. Unknown keys and ids are ignored.
func (h *Hub[T]) Unsubscribe(key, subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.feeds[key]
	if !ok {
		return
	}
	ch, ok := f.subs[subscriberID]
	if !ok {
		return
	}
	delete(f.subs, subscriberID)
	close(ch)
	if len(f.subs) == 0 {
		delete(h.feeds, key)
		f.cancel()
	}
}

// UnsubscribeAll detaches subscriberID from every key it is attached to.
func (h *Hub[T]) UnsubscribeAll(subscriberID string) {
	h.mu.Lock()
	keys := make([]string, 0, len(h.feeds))
	for key, f := range h.feeds {
		if _, ok := f.subs[subscriberID]; ok {
			keys = append(keys, key)
		}
	}
	h.mu.Unlock()

	for _, key := range keys {
		h.Unsubscribe(key, subscriberID)
	}
}

// Drop cancels the feed for key and closes every subscriber channel.
func (h *Hub[T]) Drop(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(key)
}

func (h *Hub[T]) dropLocked(key string) {
	f, ok := h.feeds[key]
	if !ok {
		return
	}
	delete(h.feeds, key)
	f.cancel()
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

// Close tears down every feed. Later calls to Subscribe fail with
// ErrHubClosed.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for key := range h.feeds {
		h.dropLocked(key)
	}
	h.cancel()
}

func (h *Hub[T]) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f, ok := h.feeds[key]; ok {
		return len(f.subs)
	}
	return 0
}

func (h *Hub[T]) Feeds() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.feeds)
}

func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
