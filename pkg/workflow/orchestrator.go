// Package workflow drives the multi-step remote mutations of the storefront:
// the profile commit machine, bag adds and the fetches that feed the catalog
// and directory slices. Workflows touch the store only through Dispatch.
package workflow

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/pkg/activity"
	"github.com/goliatone/go-storefront/pkg/api"
)

// Remote is the part of the storefront API the workflows call. *api.Client
// implements it.
type Remote interface {
	FetchStore(ctx context.Context, id int64) (storefront.StoreProfile, error)
	FetchProduct(ctx context.Context, id int64) (storefront.Product, error)
	RequestSignedURL(ctx context.Context, profileID int64, path, mimeType string) (api.SignedURL, error)
	UploadLogo(ctx context.Context, signedURL string, file storefront.LocalFile) error
	CreateStore(ctx context.Context, profile storefront.StoreProfile) (storefront.StoreProfile, error)
	UpdateStore(ctx context.Context, profile storefront.StoreProfile, includeLogo bool) (storefront.StoreProfile, error)
	AddCartLine(ctx context.Context, line storefront.CartLine) error
}

var _ Remote = (*api.Client)(nil)

// Scene names pushed by the workflows.
const (
	SceneProduct   = "product"
	SceneStore     = "store"
	SceneStoreEdit = "store_edit"
)

// Orchestrator runs workflows against one store.
type Orchestrator struct {
	store     *storefront.Store
	remote    Remote
	logger    logrus.FieldLogger
	validator *storefront.Validator
	emitter   *activity.Emitter
	observer  TransitionObserver
	metrics   *metrics
	now       func() time.Time
	newID     func() string

	registerer prometheus.Registerer

	mu      sync.Mutex
	session *editSession
}

// editSession is the orchestrator-side companion of the edit slice. Its lock
// serializes saves; upload and generation are guarded by Orchestrator.mu.
type editSession struct {
	id     string
	save   sync.Mutex
	upload storefront.UploadSession
	gen    int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegisterer registers the workflow metrics on reg instead of a private
// registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Orchestrator) {
		o.registerer = reg
	}
}

// WithValidator replaces the default expr profile rules.
func WithValidator(v *storefront.Validator) Option {
	return func(o *Orchestrator) {
		if v != nil {
			o.validator = v
		}
	}
}

func WithActivity(emitter *activity.Emitter) Option {
	return func(o *Orchestrator) {
		o.emitter = emitter
	}
}

// WithTransitionObserver receives every state machine transition.
func WithTransitionObserver(observer TransitionObserver) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSessionIDs overrides the edit session id generator.
func WithSessionIDs(next func() string) Option {
	return func(o *Orchestrator) {
		if next != nil {
			o.newID = next
		}
	}
}

func New(store *storefront.Store, remote Remote, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("workflow: store is required")
	}
	if remote == nil {
		return nil, fmt.Errorf("workflow: remote is required")
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	o := &Orchestrator{
		store:  store,
		remote: remote,
		logger: discard,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.validator == nil {
		v, err := storefront.NewValidator(storefront.DefaultProfileRules(storefront.EngineExpr))
		if err != nil {
			return nil, fmt.Errorf("workflow: default profile rules: %w", err)
		}
		o.validator = v
	}
	m, err := newMetrics(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("workflow: metrics: %w", err)
	}
	o.metrics = m
	return o, nil
}

// Store returns the store the orchestrator dispatches to.
func (o *Orchestrator) Store() *storefront.Store {
	return o.store
}

// BeginEdit puts profile under edit with a fresh session and returns the
// session id. Any save still running for the previous session turns stale.
func (o *Orchestrator) BeginEdit(ctx context.Context, profile storefront.StoreProfile) string {
	session := &editSession{id: o.newID()}
	o.mu.Lock()
	o.session = session
	o.mu.Unlock()

	o.store.Dispatch(ctx, storefront.StoreLoaded{Store: profile, SessionID: session.id})
	o.logger.WithFields(logrus.Fields{"session": session.id, "store": profile.ID}).Debug("edit session started")
	return session.id
}

// EditFields records text edits on the profile under edit.
func (o *Orchestrator) EditFields(ctx context.Context, patch storefront.ProfilePatch) error {
	session, err := o.currentSession()
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}
	o.store.Dispatch(ctx, storefront.ProfileFieldsChanged{SessionID: session.id, Patch: patch})
	return nil
}

// PickLogo validates the picked file and marks the logo as changed for the
// current edit session. A profile that was never saved cannot take a logo.
func (o *Orchestrator) PickLogo(_ context.Context, file storefront.LocalFile) (storefront.LocalFile, error) {
	session, err := o.currentSession()
	if err != nil {
		return storefront.LocalFile{}, err
	}
	if storefront.IsNewProfile(o.store.State().StoreEdit.Profile) {
		return storefront.LocalFile{}, storefront.ValidationError("save the store before adding a logo")
	}
	inspected, err := storefront.InspectLocalFile(file.Path, file.MimeType)
	if err != nil {
		return storefront.LocalFile{}, err
	}

	o.mu.Lock()
	session.upload = storefront.UploadSession{
		LocalPath: inspected.Path,
		MimeType:  inspected.MimeType,
		Changed:   true,
	}
	session.gen++
	o.mu.Unlock()
	return inspected, nil
}

// UploadSession returns the upload state of the current edit session.
func (o *Orchestrator) UploadSession() storefront.UploadSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return storefront.UploadSession{}
	}
	return o.session.upload
}

func (o *Orchestrator) currentSession() (*editSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil, storefront.ValidationError("no store profile is under edit")
	}
	return o.session, nil
}

// AddToBag sends a single-unit line for size. Sold-out sizes are rejected
// before anything is dispatched.
func (o *Orchestrator) AddToBag(ctx context.Context, size storefront.Size) error {
	if size.ID == 0 {
		return storefront.ValidationError("no size selected")
	}
	if size.Quantity <= 0 {
		return storefront.ValidationError("size %q is sold out", size.Name)
	}

	finish := o.metrics.begin(WorkflowAddToBag)
	line := storefront.NewCartLine(size.ID)
	o.store.Dispatch(ctx, storefront.AddLineRequested{Line: line})

	_, err := await(o, WorkflowAddToBag, "add_line", func() (struct{}, error) {
		return struct{}{}, o.remote.AddCartLine(ctx, line)
	})
	if err != nil {
		normalized := storefront.AsError(err)
		o.store.Dispatch(ctx, storefront.AddLineFailed{Err: normalized})
		o.emit(ctx, activity.WorkflowFailed(o.eventInput(""), WorkflowAddToBag, "add_line", string(normalized.Kind)))
		o.logger.WithError(normalized).WithField("size", size.ID).Warn("add to bag failed")
		finish(OutcomeFailed)
		return normalized
	}
	o.store.Dispatch(ctx, storefront.AddLineConfirmed{})
	o.emit(ctx, activity.BagLineAdded(o.eventInput(""), size.ID, line.Quantity))
	finish(OutcomeDone)
	return nil
}

// FetchStore loads a store into the directory without opening it.
func (o *Orchestrator) FetchStore(ctx context.Context, id int64) (storefront.StoreProfile, error) {
	finish := o.metrics.begin(WorkflowFetchStore)
	store, err := await(o, WorkflowFetchStore, "fetch", func() (storefront.StoreProfile, error) {
		return o.remote.FetchStore(ctx, id)
	})
	if err != nil {
		finish(OutcomeFailed)
		return storefront.StoreProfile{}, storefront.AsError(err)
	}
	o.store.Dispatch(ctx, storefront.StoreFetched{Store: store})
	finish(OutcomeDone)
	return store, nil
}

// OpenStore records store as opened and pushes its scene.
func (o *Orchestrator) OpenStore(ctx context.Context, store storefront.StoreProfile) {
	o.store.Dispatch(ctx, storefront.StoreOpened{Store: store})
	o.store.Dispatch(ctx, storefront.ScenePushed{Scene: storefront.Scene{
		Name:   SceneStore,
		Params: map[string]string{"id": strconv.FormatInt(store.ID, 10)},
	}})
}

// LoadProduct fetches a product into the catalog slice.
func (o *Orchestrator) LoadProduct(ctx context.Context, id int64) (storefront.Product, error) {
	finish := o.metrics.begin(WorkflowLoadProduct)
	product, err := await(o, WorkflowLoadProduct, "fetch", func() (storefront.Product, error) {
		return o.remote.FetchProduct(ctx, id)
	})
	if err != nil {
		finish(OutcomeFailed)
		return storefront.Product{}, storefront.AsError(err)
	}
	o.store.Dispatch(ctx, storefront.ProductLoaded{Product: product})
	finish(OutcomeDone)
	return product, nil
}

// Navigate pushes scene.
func (o *Orchestrator) Navigate(ctx context.Context, scene storefront.Scene) {
	o.store.Dispatch(ctx, storefront.ScenePushed{Scene: scene})
}

// Back pops the current scene. In-flight calls started from it keep running.
func (o *Orchestrator) Back(ctx context.Context) {
	o.store.Dispatch(ctx, storefront.ScenePopped{})
}

// Login stores the credential carried by token. Expired JWTs are refused.
func (o *Orchestrator) Login(ctx context.Context, token string) (storefront.Credential, error) {
	cred, err := storefront.ParseCredential(token)
	if err != nil {
		return storefront.Credential{}, err
	}
	if cred.Expired(o.now()) {
		return storefront.Credential{}, storefront.NewError(storefront.KindUnauthorized, "credential has expired", nil)
	}
	o.store.Dispatch(ctx, storefront.LoginSucceeded{Credential: cred})
	return cred, nil
}

func (o *Orchestrator) Logout(ctx context.Context) {
	o.store.Dispatch(ctx, storefront.LoggedOut{})
}

func (o *Orchestrator) eventInput(sessionID string) activity.EventInput {
	input := activity.EventInput{SessionID: sessionID, OccurredAt: o.now()}
	if cred := o.store.State().Session.Credential; cred != nil {
		input.ActorID = cred.Subject
	}
	return input
}

func (o *Orchestrator) emit(ctx context.Context, event activity.Event) {
	if err := o.emitter.Emit(context.WithoutCancel(ctx), event); err != nil {
		o.logger.WithError(err).WithField("verb", event.Verb).Warn("activity hook failed")
	}
}

type stepResult[T any] struct {
	value T
	err   error
}

// await runs one remote step in its own goroutine and blocks on its result
// channel. The call owns cancellation through its context; the wait itself
// is never abandoned so late results can still be checked for staleness.
func await[T any](o *Orchestrator, workflow, step string, call func() (T, error)) (T, error) {
	started := time.Now()
	results := make(chan stepResult[T], 1)
	go func() {
		value, err := call()
		results <- stepResult[T]{value: value, err: err}
	}()
	res := <-results
	o.metrics.observeStep(workflow, step, started)
	return res.value, res.err
}
