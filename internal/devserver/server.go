// Package devserver is an in-memory storefront backend for tests and local
// runs. It speaks the same wire format as the real API and can be told to
// fail specific routes.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-storefront"
)

// Route names accepted by Fail and Drop.
const (
	RouteStoreGet    = "store.get"
	RouteStoreCreate = "store.create"
	RouteStoreUpdate = "store.update"
	RouteLogoSign    = "logo.sign"
	RouteLogoUpload  = "logo.upload"
	RouteLogoServe   = "logo.serve"
	RouteProductGet  = "product.get"
	RouteCartAdd     = "cart.add"
)

// Call records one request the server received.
type Call struct {
	Route  string
	Method string
	Path   string
	Auth   string
	Body   []byte
}

type fault struct {
	status int
	drop   bool
}

type upload struct {
	mimeType string
	data     []byte
	done     bool
}

// Server holds the fake backend state.
type Server struct {
	mu       sync.Mutex
	router   *mux.Router
	logger   logrus.FieldLogger
	tokens   map[string]struct{}
	stores   map[int64]storefront.StoreProfile
	products map[int64]storefront.Product
	cart     []storefront.CartLine
	uploads  map[string]*upload
	faults   map[string][]fault
	calls    []Call
	nextID   int64
}

// Option configures a Server.
type Option func(*Server)

// WithTokens restricts accepted bearer tokens. Without it any non-empty token
// is accepted.
func WithTokens(tokens ...string) Option {
	return func(s *Server) {
		for _, t := range tokens {
			s.tokens[t] = struct{}{}
		}
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(opts ...Option) *Server {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Server{
		logger:   discard,
		tokens:   map[string]struct{}{},
		stores:   map[int64]storefront.StoreProfile{},
		products: map[int64]storefront.Product{},
		uploads:  map[string]*upload{},
		faults:   map[string][]fault{},
		nextID:   100,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authenticate)
	api.Handle("/stores/{id:[0-9]+}", s.handle(RouteStoreGet, s.getStore)).Methods(http.MethodGet)
	api.Handle("/stores", s.handle(RouteStoreCreate, s.createStore)).Methods(http.MethodPost)
	api.Handle("/stores/{id:[0-9]+}", s.handle(RouteStoreUpdate, s.updateStore)).Methods(http.MethodPut)
	api.Handle("/stores/{id:[0-9]+}/logo_upload", s.handle(RouteLogoSign, s.signLogo)).Methods(http.MethodPost)
	api.Handle("/products/{id:[0-9]+}", s.handle(RouteProductGet, s.getProduct)).Methods(http.MethodGet)
	api.Handle("/item_cart", s.handle(RouteCartAdd, s.addCartLine)).Methods(http.MethodPost)

	r.Handle("/uploads/{token}", s.handle(RouteLogoUpload, s.receiveUpload)).Methods(http.MethodPut)
	r.Handle("/cdn/{token}", s.handle(RouteLogoServe, s.serveUpload)).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}).Methods(http.MethodGet)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("devserver listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// SeedStore stores profile, assigning an id when it has none.
func (s *Server) SeedStore(profile storefront.StoreProfile) storefront.StoreProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if profile.ID == 0 {
		profile.ID = s.allocateID()
	}
	s.stores[profile.ID] = profile
	return profile
}

func (s *Server) SeedProduct(product storefront.Product) storefront.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID == 0 {
		product.ID = s.allocateID()
	}
	s.products[product.ID] = product
	return product
}

// Store returns the persisted profile.
func (s *Server) Store(id int64) (storefront.StoreProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.stores[id]
	return p, ok
}

// Cart returns the lines added so far.
func (s *Server) Cart() []storefront.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storefront.CartLine(nil), s.cart...)
}

// Calls returns the requests received, in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Routes lists the route names of Calls.
func (s *Server) Routes() []string {
	calls := s.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Route
	}
	return out
}

// Fail makes the next request to route answer with status.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = append(s.faults[route], fault{status: status})
}

// Drop makes the next request to route lose its connection without a
// response.
func (s *Server) Drop(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = append(s.faults[route], fault{drop: true})
}

func (s *Server) allocateID() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if len(s.tokens) > 0 {
			if _, ok := s.tokens[token]; !ok {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// handle records the call and applies any queued fault before fn runs.
func (s *Server) handle(route string, fn func(http.ResponseWriter, *http.Request, []byte)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(io.LimitReader(r.Body, 16<<20))

		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Route:  route,
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		var f *fault
		if queued := s.faults[route]; len(queued) > 0 {
			f = &queued[0]
			s.faults[route] = queued[1:]
		}
		s.mu.Unlock()

		log := s.logger.WithFields(logrus.Fields{"route": route, "method": r.Method, "path": r.URL.Path})
		if f != nil {
			if f.drop {
				log.Debug("dropping connection")
				dropConnection(w)
				return
			}
			log.WithField("status", f.status).Debug("injected failure")
			writeError(w, f.status, fmt.Sprintf("injected failure for %s", route))
			return
		}
		log.Debug("handled")
		fn(w, r, body)
	})
}

func dropConnection(w http.ResponseWriter) {
	hijacker, ok := w.(http.Hijacker)
	if !ok {
		writeError(w, http.StatusBadGateway, "connection dropped")
		return
	}
	conn, _, err := hijacker.Hijack()
	if err != nil {
		return
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
	}
	_ = conn.Close()
}

func (s *Server) getStore(w http.ResponseWriter, r *http.Request, _ []byte) {
	id := pathID(r)
	s.mu.Lock()
	store, ok := s.stores[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "store not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": store})
}

type storeBody struct {
	Store struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Email       string  `json:"email"`
		Logo        *string `json:"logo"`
	} `json:"store"`
}

func (s *Server) createStore(w http.ResponseWriter, _ *http.Request, body []byte) {
	var in storeBody
	if err := json.Unmarshal(body, &in); err != nil || strings.TrimSpace(in.Store.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "store name is required")
		return
	}
	s.mu.Lock()
	store := storefront.StoreProfile{
		ID:          s.allocateID(),
		Name:        in.Store.Name,
		Description: in.Store.Description,
		Email:       in.Store.Email,
	}
	if in.Store.Logo != nil {
		store.Logo = *in.Store.Logo
	}
	s.stores[store.ID] = store
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"data": store})
}

func (s *Server) updateStore(w http.ResponseWriter, r *http.Request, body []byte) {
	var in storeBody
	if err := json.Unmarshal(body, &in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed store")
		return
	}
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	store, ok := s.stores[id]
	if !ok {
		writeError(w, http.StatusNotFound, "store not found")
		return
	}
	store.Name = in.Store.Name
	store.Description = in.Store.Description
	store.Email = in.Store.Email
	if in.Store.Logo != nil {
		store.Logo = *in.Store.Logo
	}
	s.stores[id] = store
	writeJSON(w, http.StatusOK, map[string]any{"data": store})
}

func (s *Server) signLogo(w http.ResponseWriter, r *http.Request, body []byte) {
	var in struct {
		Path      string `json:"path"`
		MimeType  string `json:"mimeType"`
		ProfileID int64  `json:"profileId"`
	}
	if err := json.Unmarshal(body, &in); err != nil || in.Path == "" || in.MimeType == "" {
		writeError(w, http.StatusUnprocessableEntity, "path and mimeType are required")
		return
	}
	id := pathID(r)
	s.mu.Lock()
	_, ok := s.stores[id]
	token := uuid.NewString()
	if ok {
		s.uploads[token] = &upload{mimeType: in.MimeType}
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "store not found")
		return
	}
	base := "http://" + r.Host
	writeJSON(w, http.StatusOK, map[string]any{
		"presignedUrl": base + "/uploads/" + token + "?expires=" + strconv.FormatInt(time.Now().Add(15*time.Minute).Unix(), 10),
		"publicUrl":    base + "/cdn/" + token,
	})
}

func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request, body []byte) {
	token := mux.Vars(r)["token"]
	s.mu.Lock()
	defer s.mu.Unlock()
	up, ok := s.uploads[token]
	switch {
	case !ok:
		writeError(w, http.StatusForbidden, "unknown upload token")
	case r.Header.Get("Authorization") != "":
		writeError(w, http.StatusBadRequest, "signed uploads must not carry credentials")
	case r.Header.Get("Content-Type") != up.mimeType:
		writeError(w, http.StatusBadRequest, "content type does not match signed type")
	case len(body) == 0:
		writeError(w, http.StatusBadRequest, "empty upload")
	default:
		up.data = body
		up.done = true
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request, _ []byte) {
	s.mu.Lock()
	up, ok := s.uploads[mux.Vars(r)["token"]]
	s.mu.Unlock()
	if !ok || !up.done {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", up.mimeType)
	_, _ = w.Write(up.data)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request, _ []byte) {
	s.mu.Lock()
	product, ok := s.products[pathID(r)]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": product})
}

func (s *Server) addCartLine(w http.ResponseWriter, _ *http.Request, body []byte) {
	var in struct {
		ItemCart storefront.CartLine `json:"item_cart"`
	}
	if err := json.Unmarshal(body, &in); err != nil || in.ItemCart.SizeID == 0 || in.ItemCart.Quantity <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "size_id and quantity are required")
		return
	}
	s.mu.Lock()
	s.cart = append(s.cart, in.ItemCart)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"data": in.ItemCart})
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
