package storefront

import (
	"time"

	"github.com/shopspring/decimal"
)

// Credential is the bearer token held by the session slice. Subject and
// ExpiresAt are filled from JWT claims when the token carries them.
type Credential struct {
	Token     string    `json:"token" yaml:"token"`
	Subject   string    `json:"subject,omitempty" yaml:"subject,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// Scene describes one entry of the navigation stack.
type Scene struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// Image is a product picture.
type Image struct {
	URL string `json:"url"`
}

// Size is one purchasable variant of a product.
type Size struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Product is immutable once fetched.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Images      []Image `json:"images"`
	Sizes       []Size  `json:"sizes"`
	StoreID     int64   `json:"store_id"`
}

// StoreProfile is the persisted store record. ID 0 denotes a profile that was
// never saved.
type StoreProfile struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Email       string `json:"email"`
	Logo        string `json:"logo"`
}

// ProfilePatch carries text edits made to the profile under edit. Nil fields
// are untouched.
type ProfilePatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Email       *string `json:"email,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Email == nil
}

// Without drops the fields whose value committed already carries. A field
// edited to another value since is kept.
func (p ProfilePatch) Without(committed ProfilePatch) ProfilePatch {
	return ProfilePatch{
		Name:        uncommitted(p.Name, committed.Name),
		Description: uncommitted(p.Description, committed.Description),
		Email:       uncommitted(p.Email, committed.Email),
	}
}

func uncommitted(v, committed *string) *string {
	if v != nil && committed != nil && *v == *committed {
		return nil
	}
	return v
}

// CartStatus mirrors the server-side item cart status codes.
type CartStatus int

const (
	// CartStatusPendingConfirmation marks a line waiting for the merchant.
	CartStatusPendingConfirmation CartStatus = 0
)

// CartLine is the outgoing bag-add payload. It is not kept client-side after
// dispatch.
type CartLine struct {
	Quantity int        `json:"quantity"`
	Status   CartStatus `json:"status"`
	SizeID   int64      `json:"size_id"`
}

// NewCartLine builds the single-unit line sent for a size.
func NewCartLine(sizeID int64) CartLine {
	return CartLine{Quantity: 1, Status: CartStatusPendingConfirmation, SizeID: sizeID}
}

// LocalFile is what the image picker hands over: a readable path and the
// declared mime type.
type LocalFile struct {
	Path     string
	MimeType string
	Size     int64
}

// UploadSession tracks whether the logo was replaced during one edit session.
// A zero value means "text fields only".
type UploadSession struct {
	LocalPath string
	MimeType  string
	SignedURL string
	PublicURL string
	Changed   bool
}
