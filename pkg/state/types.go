package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrReentrantDispatch is the panic value raised when a reducer or listener
// dispatches on the goroutine that is already dispatching.
var ErrReentrantDispatch = errors.New("state: dispatch during dispatch")

// Reducer folds one intent into a snapshot. It must return prev unchanged for
// intents it does not recognize.
type Reducer[S, I any] func(prev S, intent I) S

// Listener observes published snapshots.
type Listener[S any] func(ctx context.Context, snapshot S)

// Option configures a Store.
type Option[S any] func(*storeConfig[S])

type storeConfig[S any] struct {
	equal func(a, b S) bool
}

// WithEqual lets the store skip notification when the reducer produced a
// snapshot equal to the previous one.
func WithEqual[S any](equal func(a, b S) bool) Option[S] {
	return func(cfg *storeConfig[S]) {
		cfg.equal = equal
	}
}

// Store holds the current snapshot and its subscribers.
type Store[S, I any] struct {
	mu      sync.Mutex
	owner   atomic.Uint64
	current atomic.Pointer[S]
	reducer Reducer[S, I]
	equal   func(a, b S) bool

	subMu     sync.RWMutex
	listeners []subscription[S]
	nextID    uint64
}

type subscription[S any] struct {
	id       uint64
	listener Listener[S]
}

// New builds a store seeded with initial.
func New[S, I any](initial S, reducer Reducer[S, I], opts ...Option[S]) (*Store[S, I], error) {
	if reducer == nil {
		return nil, fmt.Errorf("state: reducer is required")
	}
	cfg := storeConfig[S]{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	s := &Store[S, I]{reducer: reducer, equal: cfg.equal}
	s.current.Store(&initial)
	return s, nil
}

// State returns the current snapshot. It never blocks on a dispatch.
func (s *Store[S, I]) State() S {
	return *s.current.Load()
}

// Dispatch runs intent through the reducer, stores the result and notifies
// listeners synchronously. It returns the published snapshot. Dispatching
// from a reducer or listener of the same store panics with
// ErrReentrantDispatch whatever context is passed.
func (s *Store[S, I]) Dispatch(ctx context.Context, intent I) S {
	if ctx == nil {
		ctx = context.Background()
	}
	gid := goroutineID()
	if s.owner.Load() == gid {
		panic(ErrReentrantDispatch)
	}

	s.mu.Lock()
	s.owner.Store(gid)
	defer func() {
		s.owner.Store(0)
		s.mu.Unlock()
	}()

	prev := *s.current.Load()
	next := s.reducer(prev, intent)
	if s.equal != nil && s.equal(prev, next) {
		return prev
	}
	s.current.Store(&next)

	for _, sub := range s.snapshotListeners() {
		sub.listener(ctx, next)
	}
	return next
}

// Subscribe registers listener and returns a func that removes it. The
// returned func is safe to call more than once.
func (s *Store[S, I]) Subscribe(listener Listener[S]) func() {
	if listener == nil {
		return func() {}
	}
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription[S]{id: id, listener: listener})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// goroutineID reads the current goroutine id from the stack header
// "goroutine 18 [running]:". Ids start at 1, so 0 marks a free store.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		panic(fmt.Sprintf("state: cannot parse goroutine id from %q", b))
	}
	return id
}

func (s *Store[S, I]) snapshotListeners() []subscription[S] {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	out := make([]subscription[S], len(s.listeners))
	copy(out, s.listeners)
	return out
}

// Ref identifies one persisted value.
type Ref struct {
	Domain string
	Key    string
}

// Identifier returns the canonical storage key "domain/key".
func (r Ref) Identifier() (string, error) {
	domain := strings.TrimSpace(r.Domain)
	key := strings.TrimSpace(r.Key)
	if domain == "" {
		return "", fmt.Errorf("state: domain is required")
	}
	if key == "" {
		return "", fmt.Errorf("state: key is required for domain %q", domain)
	}
	if strings.ContainsAny(domain+key, `/\`) {
		return "", fmt.Errorf("state: ref %q/%q must not contain path separators", domain, key)
	}
	return domain + "/" + key, nil
}

// SnapshotStore loads/saves one value for a single reference.
type SnapshotStore[T any] interface {
	Load(ctx context.Context, ref Ref) (value T, ok bool, err error)
	Save(ctx context.Context, ref Ref, value T) error
}
