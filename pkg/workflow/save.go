package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/layering"
	"github.com/goliatone/go-storefront/pkg/activity"
	"github.com/goliatone/go-storefront/pkg/api"
)

// Transition is one edge taken by the profile commit machine.
type Transition struct {
	Workflow  string
	SessionID string
	From      storefront.Phase
	To        storefront.Phase
	At        time.Time
}

// TransitionObserver is called synchronously for every transition.
type TransitionObserver func(Transition)

var allowedTransitions = map[storefront.Phase][]storefront.Phase{
	storefront.PhaseIdle:          {storefront.PhaseRequestingURL, storefront.PhaseConfirming, storefront.PhaseFailed},
	storefront.PhaseRequestingURL: {storefront.PhaseUploading, storefront.PhaseFailed},
	storefront.PhaseUploading:     {storefront.PhaseConfirming, storefront.PhaseFailed},
	storefront.PhaseConfirming:    {storefront.PhaseDone, storefront.PhaseFailed},
}

// CanTransition reports whether the commit machine has an edge from -> to.
func CanTransition(from, to storefront.Phase) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Result describes how a save ended. Stale is set when the edit session was
// replaced while the save was suspended; nothing was dispatched after that.
type Result struct {
	SessionID string
	Phase     storefront.Phase
	Path      []storefront.Phase
	Store     storefront.StoreProfile
	Stale     bool
}

// SaveProfile commits the profile under edit. Text-only edits go straight to
// the confirm call; a picked logo is uploaded through a signed URL first.
// Saves for one edit session run one at a time.
func (o *Orchestrator) SaveProfile(ctx context.Context) (Result, error) {
	session, err := o.currentSession()
	if err != nil {
		return Result{}, err
	}
	session.save.Lock()
	defer session.save.Unlock()

	o.mu.Lock()
	upload, gen := session.upload, session.gen
	o.mu.Unlock()

	finish := o.metrics.begin(WorkflowSaveProfile)
	m := &saveMachine{
		o:       o,
		session: session,
		upload:  upload,
		gen:     gen,
		phase:   storefront.PhaseIdle,
		path:    []storefront.Phase{storefront.PhaseIdle},
		log:     o.logger.WithFields(logrus.Fields{"workflow": WorkflowSaveProfile, "session": session.id}),
	}
	res, err := m.run(ctx)
	switch {
	case res.Stale:
		finish(OutcomeStale)
	case err != nil:
		finish(OutcomeFailed)
	default:
		finish(OutcomeDone)
	}
	return res, err
}

type saveMachine struct {
	o       *Orchestrator
	session *editSession
	upload  storefront.UploadSession
	gen     int
	phase   storefront.Phase
	path    []storefront.Phase
	working storefront.StoreProfile
	draft   storefront.ProfilePatch
	log     logrus.FieldLogger
}

func (m *saveMachine) run(ctx context.Context) (Result, error) {
	edit := m.o.store.State().StoreEdit
	if edit.SessionID != m.session.id {
		return m.stale("start"), nil
	}
	m.working = edit.Working()
	m.draft = layering.Clone(edit.Draft)
	if err := m.o.validator.ValidateProfile(m.working); err != nil {
		return m.fail(ctx, err)
	}
	m.dispatch(ctx, storefront.SaveStarted{SessionID: m.session.id})

	switch {
	case storefront.IsNewProfile(m.working):
		return m.create(ctx)
	case !m.upload.Changed:
		return m.confirm(ctx, m.working, false)
	default:
		return m.uploadThenConfirm(ctx)
	}
}

func (m *saveMachine) create(ctx context.Context) (Result, error) {
	m.transition(storefront.PhaseConfirming)
	m.dispatch(ctx, storefront.ConfirmStarted{SessionID: m.session.id})

	created, err := await(m.o, WorkflowSaveProfile, "create", func() (storefront.StoreProfile, error) {
		return m.o.remote.CreateStore(ctx, m.working)
	})
	if m.isStale() {
		return m.stale("create"), nil
	}
	if err != nil {
		return m.fail(ctx, err)
	}
	return m.done(ctx, created, activity.StoreCreated(m.o.eventInput(m.session.id), created.ID, created.Name))
}

func (m *saveMachine) uploadThenConfirm(ctx context.Context) (Result, error) {
	m.transition(storefront.PhaseRequestingURL)
	m.dispatch(ctx, storefront.SignedURLRequested{SessionID: m.session.id})

	signed, err := await(m.o, WorkflowSaveProfile, "request_url", func() (api.SignedURL, error) {
		return m.o.remote.RequestSignedURL(ctx, m.working.ID, m.upload.LocalPath, m.upload.MimeType)
	})
	if m.isStale() {
		return m.stale("request_url"), nil
	}
	if err != nil {
		return m.fail(ctx, err)
	}
	m.upload.SignedURL = signed.UploadURL
	m.upload.PublicURL = signed.PublicURL
	m.dispatch(ctx, storefront.SignedURLReceived{
		SessionID: m.session.id,
		URL:       signed.UploadURL,
		Path:      m.upload.LocalPath,
		MimeType:  m.upload.MimeType,
	})

	m.transition(storefront.PhaseUploading)
	m.dispatch(ctx, storefront.UploadStarted{SessionID: m.session.id})
	file := storefront.LocalFile{Path: m.upload.LocalPath, MimeType: m.upload.MimeType}
	_, err = await(m.o, WorkflowSaveProfile, "upload", func() (struct{}, error) {
		return struct{}{}, m.o.remote.UploadLogo(ctx, signed.UploadURL, file)
	})
	if m.isStale() {
		return m.stale("upload"), nil
	}
	if err != nil {
		return m.fail(ctx, err)
	}
	m.dispatch(ctx, storefront.UploadFinished{SessionID: m.session.id, LogoURL: signed.PublicURL})
	m.o.emit(ctx, activity.LogoUploaded(m.o.eventInput(m.session.id), m.working.ID, signed.PublicURL, m.upload.MimeType))

	profile := m.working
	profile.Logo = signed.PublicURL
	return m.confirm(ctx, profile, true)
}

func (m *saveMachine) confirm(ctx context.Context, profile storefront.StoreProfile, includeLogo bool) (Result, error) {
	m.transition(storefront.PhaseConfirming)
	m.dispatch(ctx, storefront.ConfirmStarted{SessionID: m.session.id})

	saved, err := await(m.o, WorkflowSaveProfile, "confirm", func() (storefront.StoreProfile, error) {
		return m.o.remote.UpdateStore(ctx, profile, includeLogo)
	})
	if m.isStale() {
		return m.stale("confirm"), nil
	}
	if err != nil {
		return m.fail(ctx, err)
	}
	return m.done(ctx, saved, activity.StoreUpdated(m.o.eventInput(m.session.id), saved.ID, includeLogo))
}

func (m *saveMachine) done(ctx context.Context, saved storefront.StoreProfile, event activity.Event) (Result, error) {
	m.dispatch(ctx, storefront.StoreSaved{SessionID: m.session.id, Store: saved, Committed: m.draft})
	m.transition(storefront.PhaseDone)

	// a logo picked while this save ran belongs to the next save
	m.o.mu.Lock()
	if m.session.gen == m.gen {
		m.session.upload = storefront.UploadSession{}
	}
	m.o.mu.Unlock()

	m.o.emit(ctx, event)
	m.log.WithField("store", saved.ID).Info("store profile saved")
	return m.result(saved), nil
}

func (m *saveMachine) fail(ctx context.Context, err error) (Result, error) {
	normalized := storefront.AsError(err)
	failedIn := m.phase
	m.dispatch(ctx, storefront.StoreEditFailed{SessionID: m.session.id, Phase: failedIn, Err: normalized})
	m.transition(storefront.PhaseFailed)
	m.o.emit(ctx, activity.WorkflowFailed(m.o.eventInput(m.session.id), WorkflowSaveProfile, string(failedIn), string(normalized.Kind)))
	m.log.WithError(normalized).WithField("phase", failedIn).Warn("store profile save failed")
	return m.result(storefront.StoreProfile{}), normalized
}

func (m *saveMachine) stale(step string) Result {
	m.log.WithFields(logrus.Fields{"step": step, "phase": m.phase}).Debug("dropping result of replaced edit session")
	res := m.result(storefront.StoreProfile{})
	res.Stale = true
	return res
}

func (m *saveMachine) isStale() bool {
	return m.o.store.State().StoreEdit.SessionID != m.session.id
}

func (m *saveMachine) dispatch(ctx context.Context, intent storefront.Intent) {
	m.o.store.Dispatch(ctx, intent)
}

func (m *saveMachine) transition(to storefront.Phase) {
	if !CanTransition(m.phase, to) {
		panic(fmt.Sprintf("workflow: illegal transition %s -> %s", m.phase, to))
	}
	t := Transition{
		Workflow:  WorkflowSaveProfile,
		SessionID: m.session.id,
		From:      m.phase,
		To:        to,
		At:        m.o.now(),
	}
	m.phase = to
	m.path = append(m.path, to)
	if m.o.observer != nil {
		m.o.observer(t)
	}
}

func (m *saveMachine) result(store storefront.StoreProfile) Result {
	return Result{
		SessionID: m.session.id,
		Phase:     m.phase,
		Path:      append([]storefront.Phase(nil), m.path...),
		Store:     store,
	}
}
