package activity

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultChannel is stamped on events that do not name one.
const DefaultChannel = "storefront"

// Config controls activity emission.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter fans out events to hooks while applying defaults.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
}

func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	kept := make(Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			kept = append(kept, hook)
		}
	}
	return &Emitter{
		hooks:   kept,
		enabled: cfg.Enabled && len(kept) > 0,
		channel: channel,
	}
}

// Enabled reports whether emissions should be attempted. A nil emitter is
// disabled.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit forwards event to all hooks, applying the default channel.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}

// LogHook writes every event to logger at info level.
func LogHook(logger logrus.FieldLogger) ActivityHook {
	return HookFunc(func(_ context.Context, event Event) error {
		if logger == nil {
			return nil
		}
		fields := logrus.Fields{
			"verb":        event.Verb,
			"object_type": event.ObjectType,
			"object_id":   event.ObjectID,
			"channel":     event.Channel,
		}
		if event.ActorID != "" {
			fields["actor"] = event.ActorID
		}
		for k, v := range event.Metadata {
			fields[k] = v
		}
		logger.WithFields(fields).Info("activity")
		return nil
	})
}
