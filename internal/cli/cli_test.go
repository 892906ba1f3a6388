package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/internal/devserver"
)

type cliHarness struct {
	t          *testing.T
	backend    *devserver.Server
	apiURL     string
	sessionDir string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	t.Setenv("STOREFRONT_API_URL", "")
	os.Unsetenv("STOREFRONT_API_URL")
	backend := devserver.New(devserver.WithTokens("devtoken"))
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return &cliHarness{t: t, backend: backend, apiURL: srv.URL + "/api", sessionDir: t.TempDir()}
}

func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--api-url", h.apiURL, "--session-dir", h.sessionDir, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsRequireLogin(t *testing.T) {
	h := newCLIHarness(t)
	_, err := h.run("store", "show", "101")
	assert.True(t, storefront.IsKind(err, storefront.KindUnauthorized))
	assert.Empty(t, h.backend.Calls())
}

func TestLoginPersistsAcrossRuns(t *testing.T) {
	h := newCLIHarness(t)
	store := h.backend.SeedStore(storefront.StoreProfile{Name: "Loja", Email: "loja@example.com"})

	out, err := h.run("login", "devtoken")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in")
	assert.FileExists(t, filepath.Join(h.sessionDir, "session", "credential.yaml"))

	out, err = h.run("store", "show", "101")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Loja")
	assert.Equal(t, int64(101), store.ID)

	_, err = h.run("logout")
	require.NoError(t, err)
	_, err = h.run("store", "show", "101")
	assert.True(t, storefront.IsKind(err, storefront.KindUnauthorized))
}

func TestStoreEditWithLogo(t *testing.T) {
	h := newCLIHarness(t)
	store := h.backend.SeedStore(storefront.StoreProfile{Name: "Loja", Logo: "https://cdn.test/old.png"})
	logo := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(logo, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o600))

	_, err := h.run("login", "devtoken")
	require.NoError(t, err)

	_, err = h.run("store", "edit", "101", "--name", "Loja X")
	require.NoError(t, err)
	saved, _ := h.backend.Store(store.ID)
	assert.Equal(t, "Loja X", saved.Name)
	assert.Equal(t, "https://cdn.test/old.png", saved.Logo)

	_, err = h.run("store", "edit", "101", "--logo", logo)
	require.NoError(t, err)
	saved, _ = h.backend.Store(store.ID)
	assert.Contains(t, saved.Logo, "/cdn/")

	_, err = h.run("store", "edit", "101", "--name", " ")
	assert.True(t, storefront.IsKind(err, storefront.KindValidationFailed))
}

func TestStoreCreate(t *testing.T) {
	h := newCLIHarness(t)
	_, err := h.run("login", "devtoken")
	require.NoError(t, err)

	out, err := h.run("store", "create", "--name", "Loja X")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Loja X")
	assert.Equal(t, []string{devserver.RouteStoreCreate}, h.backend.Routes())
}

func TestProductShowAndBagAdd(t *testing.T) {
	h := newCLIHarness(t)
	product := h.backend.SeedProduct(storefront.Product{
		Name: "Camisa",
		Sizes: []storefront.Size{
			{ID: 1, Name: "P", Quantity: 0, Price: decimal.RequireFromString("49.9")},
			{ID: 2, Name: "M", Quantity: 3, Price: decimal.RequireFromString("59.9")},
		},
	})
	_, err := h.run("login", "devtoken")
	require.NoError(t, err)

	out, err := h.run("product", "show", "101")
	require.NoError(t, err)
	assert.Contains(t, out, "Camisa (#101)")
	assert.Contains(t, out, "price: $59.90")

	_, err = h.run("bag", "add", "101", "--size", "1")
	assert.True(t, storefront.IsKind(err, storefront.KindValidationFailed))

	out, err = h.run("bag", "add", "101")
	require.NoError(t, err)
	assert.Contains(t, out, "added Camisa (M)")
	require.Len(t, h.backend.Cart(), 1)
	assert.Equal(t, storefront.NewCartLine(2), h.backend.Cart()[0])
	assert.Equal(t, int64(101), product.ID)
}

func TestParseID(t *testing.T) {
	_, err := parseID("abc")
	assert.True(t, storefront.IsKind(err, storefront.KindValidationFailed))
	_, err = parseID("0")
	assert.Error(t, err)
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}
