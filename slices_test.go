package storefront

import (
	"context"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

type unknownIntent struct{}

func (unknownIntent) IntentName() string { return "UNKNOWN" }

func strPtr(v string) *string { return &v }

func populatedState() State {
	s := State{}
	s = Reduce(s, LoginSucceeded{Credential: Credential{Token: "tok"}})
	s = Reduce(s, ScenePushed{Scene: Scene{Name: "product", Params: map[string]string{"id": "1"}}})
	s = Reduce(s, ProductLoaded{Product: Product{ID: 1, Sizes: []Size{{ID: 10, Quantity: 2, Price: decimal.NewFromInt(5)}}}})
	s = Reduce(s, StoreFetched{Store: StoreProfile{ID: 7, Name: "Loja"}})
	s = Reduce(s, StoreLoaded{Store: StoreProfile{ID: 7, Name: "Loja"}, SessionID: "s1"})
	s = Reduce(s, AddLineRequested{Line: NewCartLine(10)})
	return s
}

func TestUnrecognizedIntentIsIdentity(t *testing.T) {
	prev := populatedState()
	next := Reduce(prev, unknownIntent{})
	if !reflect.DeepEqual(prev, next) {
		t.Fatalf("unknown intent changed state:\nprev %#v\nnext %#v", prev, next)
	}

	if got := FoldSession(prev.Session, unknownIntent{}); got != prev.Session {
		t.Fatalf("session slice changed")
	}
	if got := FoldCatalog(prev.Catalog, unknownIntent{}); got.Product != prev.Catalog.Product {
		t.Fatalf("catalog slice should return the same product pointer")
	}
	if got := FoldBag(prev.Bag, unknownIntent{}); got != prev.Bag {
		t.Fatalf("bag slice changed")
	}
	if got := Reduce(prev, nil); !reflect.DeepEqual(prev, got) {
		t.Fatalf("nil intent changed state")
	}
}

func TestSessionSlice(t *testing.T) {
	s := FoldSession(SessionState{}, LoginSucceeded{Credential: Credential{Token: "abc"}})
	if s.Token() != "abc" {
		t.Fatalf("expected token, got %q", s.Token())
	}
	if s = FoldSession(s, LoggedOut{}); s.Credential != nil || s.Token() != "" {
		t.Fatalf("expected cleared credential")
	}
}

func TestNavigationPopOnEmptyIsNoop(t *testing.T) {
	empty := NavigationState{}
	if got := FoldNavigation(empty, ScenePopped{}); len(got.Stack) != 0 {
		t.Fatalf("pop on empty should be a no-op")
	}

	nav := FoldNavigation(empty, ScenePushed{Scene: Scene{Name: "product"}})
	nav = FoldNavigation(nav, ScenePushed{Scene: Scene{Name: "store"}})
	before := nav
	nav = FoldNavigation(nav, ScenePopped{})
	if cur, ok := nav.Current(); !ok || cur.Name != "product" {
		t.Fatalf("expected product on top, got %+v", cur)
	}
	if len(before.Stack) != 2 {
		t.Fatalf("pop must not mutate the previous snapshot")
	}
	nav = FoldNavigation(nav, ScenePopped{})
	if _, ok := nav.Current(); ok {
		t.Fatalf("expected empty stack")
	}
}

func TestDirectoryCachesStores(t *testing.T) {
	d := FoldDirectory(DirectoryState{}, StoreFetched{Store: StoreProfile{ID: 1, Name: "a"}})
	d2 := FoldDirectory(d, StoreOpened{Store: StoreProfile{ID: 2, Name: "b"}})
	if len(d.Stores) != 1 {
		t.Fatalf("previous snapshot mutated")
	}
	if len(d2.Stores) != 2 || d2.Opened == nil || d2.Opened.ID != 2 {
		t.Fatalf("unexpected directory %+v", d2)
	}
}

func TestStoreLoadedIsIdempotent(t *testing.T) {
	intent := StoreLoaded{Store: StoreProfile{ID: 3, Name: "Loja", Logo: "https://cdn/logo.png"}, SessionID: "s1"}
	once := FoldStoreEdit(StoreEditState{}, intent)
	state := once
	for i := 0; i < 5; i++ {
		state = FoldStoreEdit(state, intent)
	}
	if !reflect.DeepEqual(once, state) {
		t.Fatalf("repeated STORE_LOADED diverged:\n%#v\n%#v", once, state)
	}

	store, err := NewStore()
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	notified := 0
	store.Subscribe(func(context.Context, State) { notified++ })
	store.Dispatch(context.Background(), intent)
	store.Dispatch(context.Background(), intent)
	if notified != 1 {
		t.Fatalf("identical STORE_LOADED should publish once, got %d", notified)
	}
}

func TestStoreLoadedReplacesWholesale(t *testing.T) {
	s := FoldStoreEdit(StoreEditState{}, StoreLoaded{Store: StoreProfile{ID: 1, Name: "a"}, SessionID: "s1"})
	s = FoldStoreEdit(s, ProfileFieldsChanged{SessionID: "s1", Patch: ProfilePatch{Name: strPtr("edited")}})
	s = FoldStoreEdit(s, StoreLoaded{Store: StoreProfile{ID: 2, Name: "b"}, SessionID: "s2"})
	if s.Profile.ID != 2 || !s.Draft.IsEmpty() || s.SessionID != "s2" {
		t.Fatalf("expected wholesale replace, got %+v", s)
	}
}

func TestStoreEditIgnoresStaleSession(t *testing.T) {
	s := FoldStoreEdit(StoreEditState{}, StoreLoaded{Store: StoreProfile{ID: 1, Logo: "old"}, SessionID: "current"})
	stale := FoldStoreEdit(s, StoreSaved{SessionID: "previous", Store: StoreProfile{ID: 1, Logo: "new"}})
	if !reflect.DeepEqual(s, stale) {
		t.Fatalf("stale intent applied")
	}
	if got := FoldStoreEdit(StoreEditState{}, UploadStarted{SessionID: ""}); got.Uploading {
		t.Fatalf("progress without an edit session must be ignored")
	}
}

func TestStoreEditProgressAndFailure(t *testing.T) {
	s := FoldStoreEdit(StoreEditState{}, StoreLoaded{Store: StoreProfile{ID: 1, Name: "Loja", Logo: "old"}, SessionID: "s"})
	s = FoldStoreEdit(s, ProfileFieldsChanged{SessionID: "s", Patch: ProfilePatch{Name: strPtr("Loja X")}})
	s = FoldStoreEdit(s, ProfileFieldsChanged{SessionID: "s", Patch: ProfilePatch{Email: strPtr("x@y.z")}})
	s = FoldStoreEdit(s, SignedURLRequested{SessionID: "s"})
	if !s.LoadingRequest || s.Uploading || s.Phase != PhaseRequestingURL {
		t.Fatalf("unexpected request state %+v", s)
	}
	s = FoldStoreEdit(s, SignedURLReceived{SessionID: "s", URL: "https://up/1", Path: "/tmp/logo.png", MimeType: "image/png"})
	s = FoldStoreEdit(s, UploadStarted{SessionID: "s"})
	if s.LoadingRequest || !s.Uploading || s.PresignedURL != "https://up/1" {
		t.Fatalf("unexpected upload state %+v", s)
	}

	failed := FoldStoreEdit(s, StoreEditFailed{SessionID: "s", Phase: PhaseUploading, Err: NewError(KindNetwork, "timeout", nil)})
	if failed.Uploading || failed.LoadingRequest || failed.Phase != PhaseFailed {
		t.Fatalf("failure must clear busy flags, got %+v", failed)
	}
	if failed.Profile.Logo != "old" || failed.Err.Kind != KindNetwork {
		t.Fatalf("failure must keep logo and record kind, got %+v", failed)
	}
	if w := failed.Working(); w.Name != "Loja X" || w.Email != "x@y.z" {
		t.Fatalf("draft lost on failure: %+v", w)
	}

	s = FoldStoreEdit(s, UploadFinished{SessionID: "s", LogoURL: "https://cdn/new.png"})
	if s.Uploading || s.PendingLogo != "https://cdn/new.png" || s.Profile.Logo != "old" {
		t.Fatalf("logo must stay pending until confirmed, got %+v", s)
	}
	s = FoldStoreEdit(s, ConfirmStarted{SessionID: "s"})
	s = FoldStoreEdit(s, StoreSaved{
		SessionID: "s",
		Store:     StoreProfile{ID: 1, Name: "Loja X", Email: "x@y.z", Logo: "https://cdn/new.png"},
		Committed: ProfilePatch{Name: strPtr("Loja X"), Email: strPtr("x@y.z")},
	})
	if s.Phase != PhaseDone || s.Profile.Logo != "https://cdn/new.png" || !s.Draft.IsEmpty() || s.Busy() {
		t.Fatalf("unexpected saved state %+v", s)
	}
}

func TestStoreSavedKeepsDraftTypedDuringSave(t *testing.T) {
	s := FoldStoreEdit(StoreEditState{}, StoreLoaded{Store: StoreProfile{ID: 1, Name: "Loja", Email: "a@b.c"}, SessionID: "s"})
	s = FoldStoreEdit(s, ProfileFieldsChanged{SessionID: "s", Patch: ProfilePatch{Name: strPtr("Loja X"), Email: strPtr("x@y.z")}})
	committed := s.Draft

	s = FoldStoreEdit(s, ProfileFieldsChanged{SessionID: "s", Patch: ProfilePatch{Name: strPtr("Loja Y"), Description: strPtr("nova")}})
	s = FoldStoreEdit(s, StoreSaved{
		SessionID: "s",
		Store:     StoreProfile{ID: 1, Name: "Loja X", Email: "x@y.z"},
		Committed: committed,
	})

	if s.Phase != PhaseDone || s.Profile.Name != "Loja X" {
		t.Fatalf("unexpected saved state %+v", s)
	}
	if s.Draft.Email != nil {
		t.Fatalf("committed email must leave the draft, got %q", *s.Draft.Email)
	}
	if w := s.Working(); w.Name != "Loja Y" || w.Description != "nova" || w.Email != "x@y.z" {
		t.Fatalf("edits typed during the save were lost: %+v", w)
	}
}

func TestProfilePatchWithout(t *testing.T) {
	cases := []struct {
		name      string
		draft     ProfilePatch
		committed ProfilePatch
		want      ProfilePatch
	}{
		{"empty", ProfilePatch{}, ProfilePatch{Name: strPtr("a")}, ProfilePatch{}},
		{"committed value", ProfilePatch{Name: strPtr("a")}, ProfilePatch{Name: strPtr("a")}, ProfilePatch{}},
		{"newer value", ProfilePatch{Name: strPtr("b")}, ProfilePatch{Name: strPtr("a")}, ProfilePatch{Name: strPtr("b")}},
		{"not committed", ProfilePatch{Email: strPtr("x@y.z")}, ProfilePatch{}, ProfilePatch{Email: strPtr("x@y.z")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.draft.Without(tc.committed)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestBagSliceTracksLastOutcome(t *testing.T) {
	b := FoldBag(BagState{}, AddLineRequested{Line: NewCartLine(4)})
	if b.Status != BagPending || b.Line.SizeID != 4 || b.Line.Quantity != 1 {
		t.Fatalf("unexpected pending bag %+v", b)
	}
	failed := FoldBag(b, AddLineFailed{Err: NewError(KindServerError, "oops", nil)})
	if failed.Status != BagFailed || failed.Err.Kind != KindServerError {
		t.Fatalf("unexpected failed bag %+v", failed)
	}
	if ok := FoldBag(b, AddLineConfirmed{}); ok.Status != BagConfirmed || ok.Err != nil {
		t.Fatalf("unexpected confirmed bag %+v", ok)
	}
}
