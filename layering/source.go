package layering

import (
	"fmt"
	"slices"
)

// Level is the precedence of a configuration source. Higher levels override
// lower ones.
type Level int

const (
	LevelUnknown Level = iota
	LevelDefaults
	LevelFile
	LevelEnv
	LevelFlags
)

func (l Level) String() string {
	switch l {
	case LevelDefaults:
		return "defaults"
	case LevelFile:
		return "file"
	case LevelEnv:
		return "env"
	case LevelFlags:
		return "flags"
	default:
		return "unknown"
	}
}

// ParseLevel maps a name back to its Level, LevelUnknown when unrecognised.
func ParseLevel(value string) Level {
	switch value {
	case "defaults", "DEFAULTS":
		return LevelDefaults
	case "file", "FILE":
		return LevelFile
	case "env", "ENV":
		return LevelEnv
	case "flags", "FLAGS":
		return LevelFlags
	default:
		return LevelUnknown
	}
}

// Source is one named layer in a chain.
type Source[T any] struct {
	Name  string
	Level Level
	Value T
}

func (s Source[T]) Identifier() string {
	if s.Name == "" {
		return s.Level.String()
	}
	return fmt.Sprintf("%s/%s", s.Level, s.Name)
}

// Chain holds sources ordered from strongest to weakest.
type Chain[T any] struct {
	ordered []Source[T]
}

// NewChain drops unknown levels and duplicate identifiers (first wins) and
// sorts the rest by level, keeping input order among peers.
func NewChain[T any](sources ...Source[T]) Chain[T] {
	filtered := make([]Source[T], 0, len(sources))
	seen := map[string]struct{}{}
	for _, src := range sources {
		if src.Level == LevelUnknown {
			continue
		}
		id := src.Identifier()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		filtered = append(filtered, src)
	}
	slices.SortStableFunc(filtered, func(a, b Source[T]) int {
		return int(b.Level) - int(a.Level)
	})
	return Chain[T]{ordered: filtered}
}

// Ordered returns a copy of the sources, strongest first.
func (c Chain[T]) Ordered() []Source[T] {
	return slices.Clone(c.ordered)
}

// Names lists source identifiers, strongest first.
func (c Chain[T]) Names() []string {
	out := make([]string, len(c.ordered))
	for i, src := range c.ordered {
		out[i] = src.Identifier()
	}
	return out
}

// Merge folds every source into one value.
func (c Chain[T]) Merge() T {
	values := make([]T, len(c.ordered))
	for i, src := range c.ordered {
		values[i] = src.Value
	}
	return MergeLayers(values...)
}
