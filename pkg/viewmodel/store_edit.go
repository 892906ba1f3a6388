package viewmodel

import (
	"context"

	"github.com/goliatone/go-storefront"
)

// StoreEditSnapshot is what the store edit scene renders.
type StoreEditSnapshot struct {
	SessionID      string
	Profile        storefront.StoreProfile
	Draft          storefront.ProfilePatch
	LogoPreview    string
	IsNew          bool
	ShowLogoPicker bool
	SaveEnabled    bool
	Busy           bool
	Phase          storefront.Phase
	ErrorMessage   string
}

// StoreEditView derives the edit form state from the edit slice.
type StoreEditView struct {
	subscription
	cfg      viewConfig
	snapshot snapshotHolder[StoreEditSnapshot]
}

func NewStoreEditView(store *storefront.Store, opts ...Option) *StoreEditView {
	v := &StoreEditView{cfg: buildConfig(opts)}
	v.recompute(store.State())
	v.unsubscribe = store.Subscribe(func(_ context.Context, s storefront.State) {
		v.recompute(s)
	})
	return v
}

func (v *StoreEditView) Snapshot() StoreEditSnapshot {
	return v.snapshot.load()
}

// DeriveStoreEdit computes the edit form state from the slice.
func DeriveStoreEdit(edit storefront.StoreEditState) StoreEditSnapshot {
	isNew := storefront.IsNewProfile(edit.Profile)
	preview := edit.Profile.Logo
	if edit.PendingLogo != "" {
		preview = edit.PendingLogo
	}
	return StoreEditSnapshot{
		SessionID:      edit.SessionID,
		Profile:        edit.Working(),
		Draft:          edit.Draft,
		LogoPreview:    preview,
		IsNew:          isNew,
		ShowLogoPicker: !isNew,
		SaveEnabled:    !edit.Uploading,
		Busy:           edit.Busy(),
		Phase:          edit.Phase,
		ErrorMessage:   ErrorMessage(edit.Err),
	}
}

func (v *StoreEditView) recompute(s storefront.State) {
	v.snapshot.store(DeriveStoreEdit(s.StoreEdit))
	if v.cfg.onChange != nil {
		v.cfg.onChange()
	}
}
