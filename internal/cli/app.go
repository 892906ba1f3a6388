package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/internal/config"
	"github.com/goliatone/go-storefront/pkg/activity"
	"github.com/goliatone/go-storefront/pkg/api"
	"github.com/goliatone/go-storefront/pkg/gateway"
	"github.com/goliatone/go-storefront/pkg/state"
	"github.com/goliatone/go-storefront/pkg/workflow"
)

var sessionRef = state.Ref{Domain: "session", Key: "credential"}

// app is the object graph behind one command run.
type app struct {
	cfg    config.Config
	logger *logrus.Logger
	store  *storefront.Store
	orch   *workflow.Orchestrator
	close  func()
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := opts.load()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger()

	store, err := storefront.NewStore()
	if err != nil {
		return nil, err
	}

	sessions := state.NewFileStore[storefront.Credential](cfg.SessionDir)
	if _, err := state.Restore(ctx, sessions, sessionRef, func(cred storefront.Credential) {
		if cred.Token != "" {
			store.Dispatch(ctx, storefront.LoginSucceeded{Credential: cred})
		}
	}); err != nil {
		logger.WithError(err).Warn("could not restore session")
	}
	stopPersist, err := state.Persist(store, sessions, sessionRef, selectCredential,
		state.WithPersistErrorHandler(func(err error) {
			logger.WithError(err).Error("could not save session")
		}),
	)
	if err != nil {
		return nil, err
	}

	gw, err := gateway.New(gateway.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
		Logger:    logger,
	})
	if err != nil {
		stopPersist()
		return nil, err
	}
	client, err := api.New(gw, func() *storefront.Credential {
		return store.State().Session.Credential
	})
	if err != nil {
		stopPersist()
		return nil, err
	}

	validator, err := storefront.NewValidator(cfg.Validation,
		storefront.WithEvaluatorLogger(storefront.LogrusEvaluatorLogger(logger)),
	)
	if err != nil {
		stopPersist()
		return nil, fmt.Errorf("validation rules: %w", err)
	}

	orch, err := workflow.New(store, client,
		workflow.WithLogger(logger),
		workflow.WithValidator(validator),
		workflow.WithRegisterer(prometheus.NewRegistry()),
		workflow.WithActivity(activity.NewEmitter(
			activity.Hooks{activity.LogHook(logger.WithField("component", "activity"))},
			activity.Config{Enabled: logger.IsLevelEnabled(logrus.DebugLevel)},
		)),
		workflow.WithTransitionObserver(func(t workflow.Transition) {
			logger.WithFields(logrus.Fields{"session": t.SessionID, "from": t.From, "to": t.To}).Debug("transition")
		}),
	)
	if err != nil {
		stopPersist()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		orch:   orch,
		close:  stopPersist,
	}, nil
}

func selectCredential(s storefront.State) storefront.Credential {
	if s.Session.Credential == nil {
		return storefront.Credential{}
	}
	return *s.Session.Credential
}

func (a *app) requireLogin() error {
	if a.store.State().Session.Token() == "" {
		return storefront.NewError(storefront.KindUnauthorized, "not logged in, run `storefront login <token>` first", nil)
	}
	return nil
}
