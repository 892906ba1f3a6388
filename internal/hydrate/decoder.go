// Package hydrate turns response envelopes into typed records.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context names the record being decoded, for hooks and error messages.
type Context struct {
	Resource string
	ID       string
}

func (c Context) String() string {
	if c.ID == "" {
		return c.Resource
	}
	return c.Resource + "/" + c.ID
}

// PreHook may rewrite the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or validates the decoded record.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces JSON decoding.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

type DecoderOption[T any] func(*Decoder[T])

// Decoder converts payload objects into T. Numbers are kept as json.Number
// throughout so decimal prices survive the round trip.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
	custom       CustomDecoder[T]
}

func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// DecodeJSON decodes a raw JSON object.
func (d *Decoder[T]) DecodeJSON(ctx Context, raw []byte) (T, error) {
	var zero T
	payload, err := unmarshalObject(raw)
	if err != nil {
		return zero, fmt.Errorf("hydrate: %s: %w", ctx, err)
	}
	return d.Decode(ctx, payload)
}

// Decode runs the pre-hooks, decodes payload and runs the post-hooks. The
// caller's map is never modified.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		return zero, fmt.Errorf("hydrate: %s: payload is nil", ctx)
	}

	buffer, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("hydrate: %s: marshal payload: %w", ctx, err)
	}
	current, err := unmarshalObject(buffer)
	if err != nil {
		return zero, fmt.Errorf("hydrate: %s: clone payload: %w", ctx, err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: %s: pre-hook: %w", ctx, err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	if d.custom != nil {
		if result, err = d.custom(ctx, current); err != nil {
			return zero, fmt.Errorf("hydrate: %s: custom decoder: %w", ctx, err)
		}
	} else {
		buffer, err := json.Marshal(current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: %s: marshal payload: %w", ctx, err)
		}
		decoder := json.NewDecoder(bytes.NewReader(buffer))
		for _, configure := range d.configureDec {
			configure(decoder)
		}
		if err := decoder.Decode(&result); err != nil {
			return zero, fmt.Errorf("hydrate: %s: decode: %w", ctx, err)
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: %s: post-hook: %w", ctx, err)
		}
	}
	return result, nil
}

func unmarshalObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("payload is not an object")
	}
	return out, nil
}

// NullToEmpty replaces null values of the named keys with "".
func NullToEmpty(keys ...string) PreHook {
	return func(_ Context, payload map[string]any) (map[string]any, error) {
		for _, key := range keys {
			if v, ok := payload[key]; ok && v == nil {
				payload[key] = ""
			}
		}
		return payload, nil
	}
}
