package storefront

// SessionState holds the credential, nil when logged out.
type SessionState struct {
	Credential *Credential
}

// Token returns the bearer token or "".
func (s SessionState) Token() string {
	if s.Credential == nil {
		return ""
	}
	return s.Credential.Token
}

func FoldSession(prev SessionState, intent Intent) SessionState {
	switch it := intent.(type) {
	case LoginSucceeded:
		cred := it.Credential
		return SessionState{Credential: &cred}
	case LoggedOut:
		return SessionState{}
	default:
		return prev
	}
}

// NavigationState is a push/pop stack of scenes.
type NavigationState struct {
	Stack []Scene
}

// Current returns the top scene.
func (n NavigationState) Current() (Scene, bool) {
	if len(n.Stack) == 0 {
		return Scene{}, false
	}
	return n.Stack[len(n.Stack)-1], true
}

func FoldNavigation(prev NavigationState, intent Intent) NavigationState {
	switch it := intent.(type) {
	case ScenePushed:
		stack := make([]Scene, len(prev.Stack), len(prev.Stack)+1)
		copy(stack, prev.Stack)
		return NavigationState{Stack: append(stack, cloneScene(it.Scene))}
	case ScenePopped:
		if len(prev.Stack) == 0 {
			return prev
		}
		if len(prev.Stack) == 1 {
			return NavigationState{}
		}
		stack := make([]Scene, len(prev.Stack)-1)
		copy(stack, prev.Stack)
		return NavigationState{Stack: stack}
	default:
		return prev
	}
}

func cloneScene(scene Scene) Scene {
	if len(scene.Params) == 0 {
		scene.Params = nil
		return scene
	}
	params := make(map[string]string, len(scene.Params))
	for k, v := range scene.Params {
		params[k] = v
	}
	scene.Params = params
	return scene
}

// CatalogState holds the product currently on screen.
type CatalogState struct {
	Product *Product
}

func FoldCatalog(prev CatalogState, intent Intent) CatalogState {
	switch it := intent.(type) {
	case ProductLoaded:
		product := it.Product
		return CatalogState{Product: &product}
	default:
		return prev
	}
}

// DirectoryState caches stores fetched for browsing and the one opened last.
type DirectoryState struct {
	Stores map[int64]StoreProfile
	Opened *StoreProfile
}

func FoldDirectory(prev DirectoryState, intent Intent) DirectoryState {
	switch it := intent.(type) {
	case StoreFetched:
		return DirectoryState{Stores: withStore(prev.Stores, it.Store), Opened: prev.Opened}
	case StoreOpened:
		opened := it.Store
		return DirectoryState{Stores: withStore(prev.Stores, it.Store), Opened: &opened}
	default:
		return prev
	}
}

func withStore(stores map[int64]StoreProfile, store StoreProfile) map[int64]StoreProfile {
	out := make(map[int64]StoreProfile, len(stores)+1)
	for id, s := range stores {
		out[id] = s
	}
	out[store.ID] = store
	return out
}

// BagStatus is the outcome of the last add-to-bag attempt.
type BagStatus string

const (
	BagIdle      BagStatus = ""
	BagPending   BagStatus = "pending"
	BagConfirmed BagStatus = "confirmed"
	BagFailed    BagStatus = "failed"
)

// BagState tracks only the last add for UI feedback; the server owns the cart.
type BagState struct {
	Status BagStatus
	Line   *CartLine
	Err    *Error
}

func FoldBag(prev BagState, intent Intent) BagState {
	switch it := intent.(type) {
	case AddLineRequested:
		line := it.Line
		return BagState{Status: BagPending, Line: &line}
	case AddLineConfirmed:
		return BagState{Status: BagConfirmed, Line: prev.Line}
	case AddLineFailed:
		return BagState{Status: BagFailed, Line: prev.Line, Err: it.Err}
	default:
		return prev
	}
}
