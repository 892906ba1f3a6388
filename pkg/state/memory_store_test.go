package state_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-storefront/pkg/state"
)

type credential struct {
	Token   string `yaml:"token"`
	Subject string `yaml:"subject"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore[credential]()
	ref := state.Ref{Domain: "session", Key: "default"}

	if _, ok, err := store.Load(ctx, ref); err != nil || ok {
		t.Fatalf("expected empty load, got ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, ref, credential{Token: "abc"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Token != "abc" {
		t.Fatalf("expected token abc, got %q", got.Token)
	}
}

func TestRefIdentifierRejectsInvalidRefs(t *testing.T) {
	cases := []struct {
		name string
		ref  state.Ref
	}{
		{name: "missing domain", ref: state.Ref{Key: "k"}},
		{name: "missing key", ref: state.Ref{Domain: "session"}},
		{name: "separator", ref: state.Ref{Domain: "session", Key: "../x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.ref.Identifier(); err == nil {
				t.Fatalf("expected error for %+v", tc.ref)
			}
		})
	}

	id, err := state.Ref{Domain: "session", Key: "default"}.Identifier()
	if err != nil || id != "session/default" {
		t.Fatalf("unexpected identifier %q err=%v", id, err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := state.NewFileStore[credential](dir)
	ref := state.Ref{Domain: "session", Key: "default"}

	if _, ok, err := store.Load(ctx, ref); err != nil || ok {
		t.Fatalf("expected missing file to load empty, ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, ref, credential{Token: "tok", Subject: "42"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened := state.NewFileStore[credential](dir)
	got, ok, err := reopened.Load(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got != (credential{Token: "tok", Subject: "42"}) {
		t.Fatalf("unexpected value %+v", got)
	}
	if _, err := filepath.Glob(filepath.Join(dir, "session", "*.tmp")); err != nil {
		t.Fatalf("glob: %v", err)
	}
}

func TestFileStoreRequiresDir(t *testing.T) {
	store := state.NewFileStore[credential]("")
	if err := store.Save(context.Background(), state.Ref{Domain: "session", Key: "default"}, credential{}); err == nil {
		t.Fatalf("expected error without directory")
	}
}
