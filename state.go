package storefront

import (
	"reflect"

	"github.com/goliatone/go-storefront/pkg/state"
)

// State is the composed application snapshot. Each field is owned by exactly
// one slice reducer; no reducer reads another slice.
type State struct {
	Session    SessionState
	Navigation NavigationState
	Catalog    CatalogState
	Directory  DirectoryState
	StoreEdit  StoreEditState
	Bag        BagState
}

// Store is the process-wide store type shared by workflows and view models.
type Store = state.Store[State, Intent]

// NewStore builds an empty store. Create it once at start-up and pass it to
// every consumer.
func NewStore(opts ...state.Option[State]) (*Store, error) {
	opts = append([]state.Option[State]{state.WithEqual(StatesEqual)}, opts...)
	return state.New[State, Intent](State{}, Reduce, opts...)
}

// Reduce runs intent through every slice.
func Reduce(prev State, intent Intent) State {
	if intent == nil {
		return prev
	}
	return State{
		Session:    FoldSession(prev.Session, intent),
		Navigation: FoldNavigation(prev.Navigation, intent),
		Catalog:    FoldCatalog(prev.Catalog, intent),
		Directory:  FoldDirectory(prev.Directory, intent),
		StoreEdit:  FoldStoreEdit(prev.StoreEdit, intent),
		Bag:        FoldBag(prev.Bag, intent),
	}
}

// StatesEqual compares two snapshots structurally.
func StatesEqual(a, b State) bool {
	return reflect.DeepEqual(a, b)
}
