package progress

import (
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/tugapp/tug/internal/domain"
)

// ModeStore holds the app-wide values/vices toggle. Consumers receive it
// explicitly and subscribe to changes; there is no package-level instance.
type ModeStore struct {
	mu      sync.RWMutex
	current domain.ValueKind
	subs    map[uint64]func(domain.ValueKind)
	nextID  uint64
	logger  *slog.Logger
}

// NewModeStore creates a store starting in initial mode. An invalid initial
// mode falls back to values.
func NewModeStore(initial domain.ValueKind, logger *slog.Logger) *ModeStore {
	if !initial.Valid() {
		initial = domain.KindValue
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ModeStore{
		current: initial,
		subs:    make(map[uint64]func(domain.ValueKind)),
		logger:  logger,
	}
}

// Current returns the active mode.
func (m *ModeStore) Current() domain.ValueKind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Set switches the mode and notifies subscribers synchronously, in
// subscription order. Setting the current mode again is a no-op.
func (m *ModeStore) Set(kind domain.ValueKind) bool {
	if !kind.Valid() {
		return false
	}

	m.mu.Lock()
	if m.current == kind {
		m.mu.Unlock()
		return false
	}
	m.current = kind
	ids := make([]uint64, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	handlers := make([]func(domain.ValueKind), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, m.subs[id])
	}
	m.mu.Unlock()

	for _, h := range handlers {
		m.safeCall(h, kind)
	}
	return true
}

// Subscribe registers fn for mode changes and returns a function that
// removes it. The unsubscribe function is safe to call more than once.
func (m *ModeStore) Subscribe(fn func(domain.ValueKind)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Subscribers returns the number of registered handlers.
func (m *ModeStore) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// safeCall keeps one panicking subscriber from starving the rest.
func (m *ModeStore) safeCall(h func(domain.ValueKind), kind domain.ValueKind) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("mode subscriber panicked",
				"mode", kind,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	h(kind)
}
