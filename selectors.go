package storefront

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency prefixes formatted prices.
const DefaultCurrency = "$"

// FirstAvailableSize returns the first size with stock, in product order.
func FirstAvailableSize(sizes []Size) (Size, bool) {
	for _, size := range sizes {
		if size.Quantity > 0 {
			return size, true
		}
	}
	return Size{}, false
}

// AvailableSizes filters out sold-out sizes, keeping order.
func AvailableSizes(sizes []Size) []Size {
	out := make([]Size, 0, len(sizes))
	for _, size := range sizes {
		if size.Quantity > 0 {
			out = append(out, size)
		}
	}
	return out
}

// SelectSize finds id among the available sizes. Sold-out sizes cannot be
// selected.
func SelectSize(sizes []Size, id int64) (Size, bool) {
	for _, size := range sizes {
		if size.ID == id && size.Quantity > 0 {
			return size, true
		}
	}
	return Size{}, false
}

// ActivePrice is the price of the selected size; false when nothing is
// selected.
func ActivePrice(selected *Size) (decimal.Decimal, bool) {
	if selected == nil {
		return decimal.Zero, false
	}
	return selected.Price, true
}

// FormatPrice renders amount with two decimals behind currency.
func FormatPrice(currency string, amount decimal.Decimal) string {
	return currency + amount.StringFixed(2)
}

// IsNewProfile reports whether profile was never saved.
func IsNewProfile(profile StoreProfile) bool {
	return profile.ID == 0
}

// ApplyPatch overlays the non-nil patch fields on profile.
func ApplyPatch(profile StoreProfile, patch ProfilePatch) StoreProfile {
	if patch.Name != nil {
		profile.Name = *patch.Name
	}
	if patch.Description != nil {
		profile.Description = *patch.Description
	}
	if patch.Email != nil {
		profile.Email = strings.TrimSpace(*patch.Email)
	}
	return profile
}
