package state

import (
	"context"
	"fmt"
	"reflect"
)

// PersistOption configures Persist.
type PersistOption func(*persistConfig)

type persistConfig struct {
	onError func(error)
}

// WithPersistErrorHandler receives save failures. Without it they are dropped:
// persistence never fails a dispatch.
func WithPersistErrorHandler(fn func(error)) PersistOption {
	return func(cfg *persistConfig) {
		cfg.onError = fn
	}
}

// Persist saves selector(snapshot) into snapshots under ref whenever the
// selected value changes. It returns the unsubscribe func.
func Persist[S, I, T any](store *Store[S, I], snapshots SnapshotStore[T], ref Ref, selector func(S) T, opts ...PersistOption) (func(), error) {
	if store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("state: snapshot store is required")
	}
	if selector == nil {
		return nil, fmt.Errorf("state: selector is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return nil, err
	}
	cfg := persistConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	last := selector(store.State())
	return store.Subscribe(func(ctx context.Context, snapshot S) {
		value := selector(snapshot)
		if reflect.DeepEqual(value, last) {
			return
		}
		last = value
		if err := snapshots.Save(context.WithoutCancel(ctx), ref, value); err != nil && cfg.onError != nil {
			cfg.onError(fmt.Errorf("state: persist %s/%s: %w", ref.Domain, ref.Key, err))
		}
	}), nil
}

// Restore loads ref and, when present, hands it to apply (typically a
// dispatch of the matching intent).
func Restore[T any](ctx context.Context, snapshots SnapshotStore[T], ref Ref, apply func(T)) (bool, error) {
	if snapshots == nil {
		return false, fmt.Errorf("state: snapshot store is required")
	}
	value, ok, err := snapshots.Load(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("state: restore %s/%s: %w", ref.Domain, ref.Key, err)
	}
	if !ok {
		return false, nil
	}
	if apply != nil {
		apply(value)
	}
	return true, nil
}
