// Package api exposes the storefront endpoints as typed calls over the
// gateway. Every error it returns is a *storefront.Error.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/internal/hydrate"
	"github.com/goliatone/go-storefront/pkg/gateway"
)

// CredentialFunc returns the credential to send, nil when logged out.
type CredentialFunc func() *storefront.Credential

// SignedURL is the answer to a logo upload request.
type SignedURL struct {
	UploadURL string
	PublicURL string
}

// Client implements the storefront endpoints.
type Client struct {
	gateway     *gateway.Client
	credentials CredentialFunc
	stores      *hydrate.Decoder[storefront.StoreProfile]
	products    *hydrate.Decoder[storefront.Product]
}

func New(gw *gateway.Client, credentials CredentialFunc) (*Client, error) {
	if gw == nil {
		return nil, fmt.Errorf("api: gateway is required")
	}
	if credentials == nil {
		return nil, fmt.Errorf("api: credential source is required")
	}
	return &Client{
		gateway:     gw,
		credentials: credentials,
		stores: hydrate.NewDecoder[storefront.StoreProfile](
			hydrate.WithPreHook[storefront.StoreProfile](hydrate.NullToEmpty("name", "description", "email", "logo")),
			hydrate.WithPostHook[storefront.StoreProfile](requireStoreID),
		),
		products: hydrate.NewDecoder[storefront.Product](
			hydrate.WithPreHook[storefront.Product](hydrate.NullToEmpty("name", "description")),
		),
	}, nil
}

func requireStoreID(ctx hydrate.Context, store *storefront.StoreProfile) error {
	if store.ID == 0 {
		return fmt.Errorf("store %s has no id", ctx)
	}
	return nil
}

func (c *Client) FetchStore(ctx context.Context, id int64) (storefront.StoreProfile, error) {
	resp, err := c.do(ctx, gateway.Request{Method: http.MethodGet, Path: storePath(id)})
	if err != nil {
		return storefront.StoreProfile{}, err
	}
	return decodeData(c.stores, hydrate.Context{Resource: "stores", ID: itoa(id)}, resp)
}

func (c *Client) FetchProduct(ctx context.Context, id int64) (storefront.Product, error) {
	resp, err := c.do(ctx, gateway.Request{Method: http.MethodGet, Path: "products/" + itoa(id)})
	if err != nil {
		return storefront.Product{}, err
	}
	return decodeData(c.products, hydrate.Context{Resource: "products", ID: itoa(id)}, resp)
}

type signedURLRequest struct {
	Path      string `json:"path"`
	MimeType  string `json:"mimeType"`
	ProfileID int64  `json:"profileId"`
}

// RequestSignedURL exchanges a local file description for an upload URL bound
// to profileID.
func (c *Client) RequestSignedURL(ctx context.Context, profileID int64, path, mimeType string) (SignedURL, error) {
	resp, err := c.do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   storePath(profileID) + "/logo_upload",
		Body:   signedURLRequest{Path: path, MimeType: mimeType, ProfileID: profileID},
	})
	if err != nil {
		return SignedURL{}, err
	}
	root := resp.Data()
	if !root.IsObject() {
		root = resp.Get("@this")
	}
	out := SignedURL{
		UploadURL: root.Get("presignedUrl").String(),
		PublicURL: root.Get("publicUrl").String(),
	}
	if out.UploadURL == "" || out.PublicURL == "" {
		return SignedURL{}, storefront.NewError(storefront.KindUnknown, "signed URL response is incomplete", nil)
	}
	return out, nil
}

// UploadLogo streams file to the signed URL.
func (c *Client) UploadLogo(ctx context.Context, signedURL string, file storefront.LocalFile) error {
	f, err := os.Open(file.Path)
	if err != nil {
		return &storefront.Error{Kind: storefront.KindValidationFailed, Message: "logo file is not readable", Err: err}
	}
	defer f.Close()

	size := file.Size
	if size <= 0 {
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}
	}
	return c.gateway.Upload(ctx, signedURL, f, size, file.MimeType)
}

type storeEnvelope struct {
	Store storePayload `json:"store"`
}

// storePayload is the writable part of a profile. Logo is nil unless the
// logo changed in this edit session.
type storePayload struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Email       string  `json:"email"`
	Logo        *string `json:"logo,omitempty"`
}

func payloadFor(profile storefront.StoreProfile, includeLogo bool) storeEnvelope {
	p := storePayload{Name: profile.Name, Description: profile.Description, Email: profile.Email}
	if includeLogo {
		logo := profile.Logo
		p.Logo = &logo
	}
	return storeEnvelope{Store: p}
}

// CreateStore persists a profile that has never been saved.
func (c *Client) CreateStore(ctx context.Context, profile storefront.StoreProfile) (storefront.StoreProfile, error) {
	if !storefront.IsNewProfile(profile) {
		return storefront.StoreProfile{}, storefront.ValidationError("store %d already exists", profile.ID)
	}
	resp, err := c.do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "stores",
		Body:   payloadFor(profile, profile.Logo != ""),
	})
	if err != nil {
		return storefront.StoreProfile{}, err
	}
	return decodeData(c.stores, hydrate.Context{Resource: "stores"}, resp)
}

// UpdateStore saves text fields and, when includeLogo is set, the logo.
func (c *Client) UpdateStore(ctx context.Context, profile storefront.StoreProfile, includeLogo bool) (storefront.StoreProfile, error) {
	if storefront.IsNewProfile(profile) {
		return storefront.StoreProfile{}, storefront.ValidationError("store has no id, create it first")
	}
	resp, err := c.do(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   storePath(profile.ID),
		Body:   payloadFor(profile, includeLogo),
	})
	if err != nil {
		return storefront.StoreProfile{}, err
	}
	return decodeData(c.stores, hydrate.Context{Resource: "stores", ID: itoa(profile.ID)}, resp)
}

type cartEnvelope struct {
	ItemCart storefront.CartLine `json:"item_cart"`
}

func (c *Client) AddCartLine(ctx context.Context, line storefront.CartLine) error {
	_, err := c.do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "item_cart",
		Body:   cartEnvelope{ItemCart: line},
	})
	return err
}

func (c *Client) do(ctx context.Context, req gateway.Request) (*gateway.Response, error) {
	resp, err := c.gateway.Do(ctx, req, c.credentials())
	if err != nil {
		return nil, gateway.Normalize(err)
	}
	return resp, nil
}

func decodeData[T any](decoder *hydrate.Decoder[T], hctx hydrate.Context, resp *gateway.Response) (T, error) {
	var zero T
	data := resp.Data()
	if !data.IsObject() {
		return zero, storefront.NewError(storefront.KindUnknown, fmt.Sprintf("%s: response has no data object", hctx), nil)
	}
	out, err := decoder.DecodeJSON(hctx, []byte(data.Raw))
	if err != nil {
		return zero, storefront.NewError(storefront.KindUnknown, "malformed response", err)
	}
	return out, nil
}

func storePath(id int64) string {
	return "stores/" + itoa(id)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
