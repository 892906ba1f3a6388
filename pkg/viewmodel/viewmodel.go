// Package viewmodel derives read-only presentation state from the store.
// Views subscribe on construction and keep the latest derived snapshot; the
// presentation layer reads snapshots and calls back into workflows.
package viewmodel

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-storefront"
)

// Bagger adds a size to the bag. *workflow.Orchestrator implements it.
type Bagger interface {
	AddToBag(ctx context.Context, size storefront.Size) error
}

// Option configures a view.
type Option func(*viewConfig)

type viewConfig struct {
	currency string
	onChange func()
}

// WithCurrency sets the price label prefix.
func WithCurrency(currency string) Option {
	return func(cfg *viewConfig) {
		if currency != "" {
			cfg.currency = currency
		}
	}
}

// WithOnChange is called after the view recomputed its snapshot.
func WithOnChange(fn func()) Option {
	return func(cfg *viewConfig) {
		cfg.onChange = fn
	}
}

func buildConfig(opts []Option) viewConfig {
	cfg := viewConfig{currency: storefront.DefaultCurrency}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// subscription ties a view to the store until Close.
type subscription struct {
	once        sync.Once
	unsubscribe func()
}

func (s *subscription) Close() {
	s.once.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
}

// snapshotHolder publishes one derived value lock-free.
type snapshotHolder[T any] struct {
	current atomic.Pointer[T]
}

func (h *snapshotHolder[T]) load() T {
	if p := h.current.Load(); p != nil {
		return *p
	}
	var zero T
	return zero
}

func (h *snapshotHolder[T]) store(v T) {
	h.current.Store(&v)
}

// ErrorMessage renders err for display. Validation messages are shown as is;
// other kinds get a fixed sentence.
func ErrorMessage(err *storefront.Error) string {
	if err == nil {
		return ""
	}
	switch err.Kind {
	case storefront.KindValidationFailed:
		if err.Message != "" {
			return err.Message
		}
		return "Some fields are not valid."
	case storefront.KindNetwork:
		return "Could not reach the server. Check your connection and try again."
	case storefront.KindUnauthorized:
		return "Your session has expired. Log in again."
	case storefront.KindNotFound:
		return "This item is no longer available."
	case storefront.KindServerError:
		return "The server could not complete the request. Try again later."
	default:
		return "Something went wrong."
	}
}
