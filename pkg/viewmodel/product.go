package viewmodel

import (
	"context"
	"sync"

	"github.com/goliatone/go-storefront"
)

// ProductSnapshot is what the product scene renders.
type ProductSnapshot struct {
	Product     *storefront.Product
	Sizes       []storefront.Size
	Selected    *storefront.Size
	PriceLabel  string
	CanPurchase bool
	BagStatus   storefront.BagStatus
	BagError    string
}

// ProductView tracks the catalog and bag slices. The selected size defaults
// to the first size in stock; Select overrides it until the product changes.
type ProductView struct {
	subscription
	cfg    viewConfig
	bagger Bagger

	mu        sync.Mutex
	productID int64
	override  int64
	last      storefront.State

	snapshot snapshotHolder[ProductSnapshot]
}

func NewProductView(store *storefront.Store, bagger Bagger, opts ...Option) *ProductView {
	v := &ProductView{cfg: buildConfig(opts), bagger: bagger}
	v.recompute(store.State())
	v.unsubscribe = store.Subscribe(func(_ context.Context, s storefront.State) {
		v.recompute(s)
	})
	return v
}

// Snapshot returns the latest derived state.
func (v *ProductView) Snapshot() ProductSnapshot {
	return v.snapshot.load()
}

// Select overrides the selected size. Sold-out or unknown sizes are rejected.
func (v *ProductView) Select(sizeID int64) error {
	v.mu.Lock()
	product := v.last.Catalog.Product
	if product == nil {
		v.mu.Unlock()
		return storefront.ValidationError("no product loaded")
	}
	if _, ok := storefront.SelectSize(product.Sizes, sizeID); !ok {
		v.mu.Unlock()
		return storefront.ValidationError("size %d is not available", sizeID)
	}
	v.override = sizeID
	v.deriveLocked()
	v.mu.Unlock()
	v.changed()
	return nil
}

// AddToBag adds the selected size.
func (v *ProductView) AddToBag(ctx context.Context) error {
	snap := v.Snapshot()
	if !snap.CanPurchase || snap.Selected == nil {
		return storefront.ValidationError("select an available size first")
	}
	if v.bagger == nil {
		return storefront.ValidationError("bag is not available")
	}
	return v.bagger.AddToBag(ctx, *snap.Selected)
}

func (v *ProductView) recompute(s storefront.State) {
	v.mu.Lock()
	v.last = s
	v.deriveLocked()
	v.mu.Unlock()
	v.changed()
}

// deriveLocked rebuilds the snapshot from v.last. v.mu must be held.
func (v *ProductView) deriveLocked() {
	s := v.last
	product := s.Catalog.Product
	snap := ProductSnapshot{BagStatus: s.Bag.Status, BagError: ErrorMessage(s.Bag.Err)}
	if product != nil {
		if product.ID != v.productID {
			v.productID = product.ID
			v.override = 0
		}
		snap.Product = product
		snap.Sizes = storefront.AvailableSizes(product.Sizes)

		selected, ok := storefront.SelectSize(product.Sizes, v.override)
		if !ok {
			selected, ok = storefront.FirstAvailableSize(product.Sizes)
		}
		if ok {
			snap.Selected = &selected
		}
		if price, ok := storefront.ActivePrice(snap.Selected); ok {
			snap.PriceLabel = storefront.FormatPrice(v.cfg.currency, price)
		}
		snap.CanPurchase = snap.Selected != nil && s.Bag.Status != storefront.BagPending
	}
	v.snapshot.store(snap)
}

func (v *ProductView) changed() {
	if v.cfg.onChange != nil {
		v.cfg.onChange()
	}
}
