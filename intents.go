package storefront

// Intent is a serializable description of a requested state change. Reducers
// switch on the concrete type and ignore anything they do not own.
type Intent interface {
	IntentName() string
}

// Phase names a state of the profile commit machine. It is carried on the
// edit slice so the presentation layer can render progress.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseRequestingURL Phase = "requesting_url"
	PhaseUploading     Phase = "uploading"
	PhaseConfirming    Phase = "confirming"
	PhaseDone          Phase = "done"
	PhaseFailed        Phase = "failed"
)

// Terminal reports whether no transition leaves p.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

type (
	LoginSucceeded struct {
		Credential Credential
	}
	LoggedOut struct{}
)

func (LoginSucceeded) IntentName() string { return "LOGIN_SUCCESS" }
func (LoggedOut) IntentName() string      { return "LOGOUT" }

type (
	ScenePushed struct {
		Scene Scene
	}
	ScenePopped struct{}
)

func (ScenePushed) IntentName() string { return "PUSH" }
func (ScenePopped) IntentName() string { return "POP" }

type ProductLoaded struct {
	Product Product
}

func (ProductLoaded) IntentName() string { return "PRODUCT_LOADED" }

type (
	StoreFetched struct {
		Store StoreProfile
	}
	StoreOpened struct {
		Store StoreProfile
	}
)

func (StoreFetched) IntentName() string { return "STORE_FETCHED" }
func (StoreOpened) IntentName() string  { return "STORE_OPENED" }

// Edit slice intents. Every intent but StoreLoaded names the edit session it
// belongs to; the slice drops intents from sessions that were replaced.
type (
	StoreLoaded struct {
		Store     StoreProfile
		SessionID string
	}
	ProfileFieldsChanged struct {
		SessionID string
		Patch     ProfilePatch
	}
	SaveStarted struct {
		SessionID string
	}
	SignedURLRequested struct {
		SessionID string
	}
	SignedURLReceived struct {
		SessionID string
		URL       string
		Path      string
		MimeType  string
	}
	UploadStarted struct {
		SessionID string
	}
	UploadFinished struct {
		SessionID string
		LogoURL   string
	}
	ConfirmStarted struct {
		SessionID string
	}
	// StoreSaved carries the server's record and the draft that was sent
	// with it. Draft fields edited since keep their newer value.
	StoreSaved struct {
		SessionID string
		Store     StoreProfile
		Committed ProfilePatch
	}
	StoreEditFailed struct {
		SessionID string
		Phase     Phase
		Err       *Error
	}
)

func (StoreLoaded) IntentName() string          { return "STORE_LOADED" }
func (ProfileFieldsChanged) IntentName() string { return "PROFILE_FIELDS_CHANGED" }
func (SaveStarted) IntentName() string          { return "SAVE_STARTED" }
func (SignedURLRequested) IntentName() string   { return "SIGNED_URL_REQUESTED" }
func (SignedURLReceived) IntentName() string    { return "SIGNED_URL_RECEIVED" }
func (UploadStarted) IntentName() string        { return "UPLOAD_STARTED" }
func (UploadFinished) IntentName() string       { return "UPLOAD_FINISHED" }
func (ConfirmStarted) IntentName() string       { return "CONFIRM_STARTED" }
func (StoreSaved) IntentName() string           { return "STORE_SAVED" }
func (StoreEditFailed) IntentName() string      { return "STORE_EDIT_FAILED" }

type (
	AddLineRequested struct {
		Line CartLine
	}
	AddLineConfirmed struct{}
	AddLineFailed    struct {
		Err *Error
	}
)

func (AddLineRequested) IntentName() string { return "ADD_LINE_REQUESTED" }
func (AddLineConfirmed) IntentName() string { return "ADD_LINE_CONFIRMED" }
func (AddLineFailed) IntentName() string    { return "ADD_LINE_FAILED" }
