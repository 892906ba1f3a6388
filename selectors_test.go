package storefront

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFirstAvailableSize(t *testing.T) {
	cases := []struct {
		name   string
		sizes  []Size
		wantID int64
		wantOK bool
	}{
		{name: "empty", sizes: nil, wantOK: false},
		{name: "all sold out", sizes: []Size{{ID: 1}, {ID: 2}}, wantOK: false},
		{name: "first in stock", sizes: []Size{{ID: 1, Quantity: 3}, {ID: 2, Quantity: 1}}, wantID: 1, wantOK: true},
		{name: "skips sold out", sizes: []Size{{ID: 1}, {ID: 2, Quantity: 1}, {ID: 3, Quantity: 9}}, wantID: 2, wantOK: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FirstAvailableSize(tc.sizes)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && got.ID != tc.wantID {
				t.Fatalf("id = %d, want %d", got.ID, tc.wantID)
			}
		})
	}
}

func TestSelectSizeOnlyOffersAvailable(t *testing.T) {
	sizes := []Size{{ID: 1}, {ID: 2, Quantity: 1}}
	if _, ok := SelectSize(sizes, 1); ok {
		t.Fatalf("sold-out size must not be selectable")
	}
	if got, ok := SelectSize(sizes, 2); !ok || got.ID != 2 {
		t.Fatalf("expected size 2")
	}
	if got := AvailableSizes(sizes); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("unexpected available sizes %+v", got)
	}
}

func TestActivePriceAndFormat(t *testing.T) {
	if _, ok := ActivePrice(nil); ok {
		t.Fatalf("no selection has no price")
	}
	size := Size{ID: 1, Quantity: 1, Price: decimal.RequireFromString("19.9")}
	price, ok := ActivePrice(&size)
	if !ok || FormatPrice(DefaultCurrency, price) != "$19.90" {
		t.Fatalf("unexpected price %s", FormatPrice(DefaultCurrency, price))
	}
}

func TestIsNewProfileAndApplyPatch(t *testing.T) {
	if !IsNewProfile(StoreProfile{}) || IsNewProfile(StoreProfile{ID: 4}) {
		t.Fatalf("IsNewProfile must key on id 0")
	}
	base := StoreProfile{ID: 4, Name: "a", Description: "d", Email: "e@x.io", Logo: "l"}
	got := ApplyPatch(base, ProfilePatch{Name: strPtr("b"), Email: strPtr(" n@x.io ")})
	want := StoreProfile{ID: 4, Name: "b", Description: "d", Email: "n@x.io", Logo: "l"}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}
