package devserver_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/internal/devserver"
)

func send(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPIRequiresBearer(t *testing.T) {
	srv := devserver.New(devserver.WithTokens("good"))
	store := srv.SeedStore(storefront.StoreProfile{Name: "Loja"})

	assert.Equal(t, http.StatusUnauthorized, send(t, srv, http.MethodGet, "/api/stores/1", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, send(t, srv, http.MethodGet, "/api/stores/1", "bad", "").Code)

	rec := send(t, srv, http.MethodGet, "/api/stores/"+itoa(store.ID), "good", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Loja", gjson.Get(rec.Body.String(), "data.name").String())
}

func TestUpdateKeepsLogoWhenOmitted(t *testing.T) {
	srv := devserver.New()
	store := srv.SeedStore(storefront.StoreProfile{Name: "Loja", Logo: "https://cdn/old.png"})
	path := "/api/stores/" + itoa(store.ID)

	rec := send(t, srv, http.MethodPut, path, "tok", `{"store":{"name":"Loja X","description":"","email":""}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got, _ := srv.Store(store.ID)
	assert.Equal(t, "Loja X", got.Name)
	assert.Equal(t, "https://cdn/old.png", got.Logo)

	send(t, srv, http.MethodPut, path, "tok", `{"store":{"name":"Loja X","logo":"https://cdn/new.png"}}`)
	got, _ = srv.Store(store.ID)
	assert.Equal(t, "https://cdn/new.png", got.Logo)
}

func TestSignedUploadFlow(t *testing.T) {
	srv := devserver.New()
	store := srv.SeedStore(storefront.StoreProfile{Name: "Loja"})

	rec := send(t, srv, http.MethodPost, "/api/stores/"+itoa(store.ID)+"/logo_upload", "tok",
		`{"path":"/tmp/logo.png","mimeType":"image/png","profileId":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	presigned := gjson.Get(rec.Body.String(), "presignedUrl").String()
	public := gjson.Get(rec.Body.String(), "publicUrl").String()
	require.NotEmpty(t, presigned)

	uploadPath := strings.TrimPrefix(presigned, "http://example.com")
	req := httptest.NewRequest(http.MethodPut, uploadPath, bytes.NewReader([]byte("PNG")))
	req.Header.Set("Content-Type", "image/png")
	up := httptest.NewRecorder()
	srv.ServeHTTP(up, req)
	require.Equal(t, http.StatusOK, up.Code)

	served := send(t, srv, http.MethodGet, strings.TrimPrefix(public, "http://example.com"), "", "")
	assert.Equal(t, "PNG", served.Body.String())

	withAuth := httptest.NewRequest(http.MethodPut, uploadPath, bytes.NewReader([]byte("PNG")))
	withAuth.Header.Set("Content-Type", "image/png")
	withAuth.Header.Set("Authorization", "Bearer tok")
	rejected := httptest.NewRecorder()
	srv.ServeHTTP(rejected, withAuth)
	assert.Equal(t, http.StatusBadRequest, rejected.Code)
}

func TestFaultInjectionAndCallLog(t *testing.T) {
	srv := devserver.New()
	srv.Fail(devserver.RouteCartAdd, http.StatusServiceUnavailable)

	body := `{"item_cart":{"quantity":1,"status":0,"size_id":9}}`
	assert.Equal(t, http.StatusServiceUnavailable, send(t, srv, http.MethodPost, "/api/item_cart", "tok", body).Code)
	assert.Equal(t, http.StatusCreated, send(t, srv, http.MethodPost, "/api/item_cart", "tok", body).Code)

	assert.Equal(t, []string{devserver.RouteCartAdd, devserver.RouteCartAdd}, srv.Routes())
	require.Len(t, srv.Cart(), 1)
	assert.Equal(t, int64(9), srv.Cart()[0].SizeID)
}

func TestCreateStoreAssignsID(t *testing.T) {
	srv := devserver.New()
	rec := send(t, srv, http.MethodPost, "/api/stores", "tok", `{"store":{"name":"Loja X"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotZero(t, gjson.Get(rec.Body.String(), "data.id").Int())

	rec = send(t, srv, http.MethodPost, "/api/stores", "tok", `{"store":{"name":" "}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
