package workflow_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/pkg/api"
)

// fakeRemote records the order of remote calls and echoes profiles back the
// way the backend does.
type fakeRemote struct {
	mu    sync.Mutex
	calls []string
	saved []storefront.StoreProfile
	logo  string

	signErr   error
	uploadErr error
	updateErr error
	createErr error
	cartErr   error

	updateReached chan struct{}
	releaseUpdate chan struct{}
	uploadReached chan struct{}
	releaseUpload chan struct{}

	products map[int64]storefront.Product
	stores   map[int64]storefront.StoreProfile
}

func (r *fakeRemote) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *fakeRemote) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Saved returns the profiles that reached UpdateStore, in call order.
func (r *fakeRemote) Saved() []storefront.StoreProfile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]storefront.StoreProfile(nil), r.saved...)
}

func (r *fakeRemote) FetchStore(_ context.Context, id int64) (storefront.StoreProfile, error) {
	r.record(fmt.Sprintf("fetch_store:%d", id))
	store, ok := r.stores[id]
	if !ok {
		return storefront.StoreProfile{}, storefront.NewError(storefront.KindNotFound, "store not found", nil)
	}
	return store, nil
}

func (r *fakeRemote) FetchProduct(_ context.Context, id int64) (storefront.Product, error) {
	r.record(fmt.Sprintf("fetch_product:%d", id))
	product, ok := r.products[id]
	if !ok {
		return storefront.Product{}, storefront.NewError(storefront.KindNotFound, "product not found", nil)
	}
	return product, nil
}

func (r *fakeRemote) RequestSignedURL(_ context.Context, profileID int64, path, mimeType string) (api.SignedURL, error) {
	r.record("sign")
	if r.signErr != nil {
		return api.SignedURL{}, r.signErr
	}
	return api.SignedURL{
		UploadURL: fmt.Sprintf("https://uploads.test/%d?sig=1", profileID),
		PublicURL: fmt.Sprintf("https://cdn.test/%d.png", profileID),
	}, nil
}

func (r *fakeRemote) UploadLogo(_ context.Context, _ string, _ storefront.LocalFile) error {
	r.record("upload")
	signal(r.uploadReached)
	if r.releaseUpload != nil {
		<-r.releaseUpload
	}
	return r.uploadErr
}

func (r *fakeRemote) CreateStore(_ context.Context, profile storefront.StoreProfile) (storefront.StoreProfile, error) {
	r.record("create")
	if r.createErr != nil {
		return storefront.StoreProfile{}, r.createErr
	}
	profile.ID = 101
	return profile, nil
}

func (r *fakeRemote) UpdateStore(_ context.Context, profile storefront.StoreProfile, includeLogo bool) (storefront.StoreProfile, error) {
	r.record(fmt.Sprintf("update:%t", includeLogo))
	signal(r.updateReached)
	if r.releaseUpdate != nil {
		<-r.releaseUpdate
	}
	if r.updateErr != nil {
		return storefront.StoreProfile{}, r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, profile)
	if includeLogo {
		r.logo = profile.Logo
	}
	profile.Logo = r.logo
	return profile, nil
}

func (r *fakeRemote) AddCartLine(_ context.Context, line storefront.CartLine) error {
	r.record(fmt.Sprintf("cart:%d", line.SizeID))
	return r.cartErr
}

func signal(ch chan struct{}) {
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}
