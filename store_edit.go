package storefront

import "github.com/goliatone/go-storefront/layering"

// StoreEditState is the profile currently under edit.
//
// Profile only ever holds the last confirmed record: the text draft lives in
// Draft and a freshly uploaded logo in PendingLogo until STORE_SAVED replaces
// Profile with the server's version. Draft fields typed while a save was in
// flight outlive that save.
type StoreEditState struct {
	SessionID string
	Profile   StoreProfile
	Draft     ProfilePatch

	LogoPath       string
	MimeType       string
	PresignedURL   string
	PendingLogo    string
	LoadingRequest bool
	Uploading      bool

	Phase Phase
	Err   *Error
}

// Working is the profile as the form shows it.
func (s StoreEditState) Working() StoreProfile {
	return ApplyPatch(s.Profile, s.Draft)
}

// Busy reports whether a commit is in flight.
func (s StoreEditState) Busy() bool {
	switch s.Phase {
	case PhaseRequestingURL, PhaseUploading, PhaseConfirming:
		return true
	default:
		return false
	}
}

func FoldStoreEdit(prev StoreEditState, intent Intent) StoreEditState {
	if it, ok := intent.(StoreLoaded); ok {
		return StoreEditState{SessionID: it.SessionID, Profile: it.Store, Phase: PhaseIdle}
	}

	sessionID, ok := editSessionOf(intent)
	if !ok || sessionID != prev.SessionID || prev.SessionID == "" {
		return prev
	}

	next := prev
	switch it := intent.(type) {
	case ProfileFieldsChanged:
		next.Draft = layering.MergeLayers(it.Patch, prev.Draft)
	case SaveStarted:
		next.Err = nil
		next.PendingLogo = ""
		next.Phase = PhaseIdle
	case SignedURLRequested:
		next.LoadingRequest = true
		next.Phase = PhaseRequestingURL
	case SignedURLReceived:
		next.LoadingRequest = false
		next.PresignedURL = it.URL
		next.LogoPath = it.Path
		next.MimeType = it.MimeType
	case UploadStarted:
		next.Uploading = true
		next.Phase = PhaseUploading
	case UploadFinished:
		next.Uploading = false
		next.PendingLogo = it.LogoURL
	case ConfirmStarted:
		next.Phase = PhaseConfirming
	case StoreSaved:
		return StoreEditState{
			SessionID: prev.SessionID,
			Profile:   it.Store,
			Draft:     prev.Draft.Without(it.Committed),
			Phase:     PhaseDone,
		}
	case StoreEditFailed:
		next.LoadingRequest = false
		next.Uploading = false
		next.PendingLogo = ""
		next.PresignedURL = ""
		next.Phase = PhaseFailed
		next.Err = it.Err
	}
	return next
}

func editSessionOf(intent Intent) (string, bool) {
	switch it := intent.(type) {
	case ProfileFieldsChanged:
		return it.SessionID, true
	case SaveStarted:
		return it.SessionID, true
	case SignedURLRequested:
		return it.SessionID, true
	case SignedURLReceived:
		return it.SessionID, true
	case UploadStarted:
		return it.SessionID, true
	case UploadFinished:
		return it.SessionID, true
	case ConfirmStarted:
		return it.SessionID, true
	case StoreSaved:
		return it.SessionID, true
	case StoreEditFailed:
		return it.SessionID, true
	default:
		return "", false
	}
}
