package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"requirement-analyzer/internal/cache"
	"requirement-analyzer/internal/config"
	"requirement-analyzer/internal/helpers"
	"requirement-analyzer/internal/metrics"
	"requirement-analyzer/internal/models"
	"requirement-analyzer/internal/repositories"
	"requirement-analyzer/internal/services"
	"requirement-analyzer/internal/session"

	"github.com/spf13/cobra"
)

// cliError is a problem with the command line itself and is shown verbatim
type cliError struct {
	msg string
}

func (e *cliError) Error() string { return e.msg }

func cliErrorf(format string, args ...interface{}) error {
	return &cliError{msg: fmt.Sprintf(format, args...)}
}

// describe returns the text printed for a failed command
func describe(err error) string {
	var cli *cliError
	if errors.As(err, &cli) {
		return cli.msg
	}
	return services.UserMessage(err)
}

// app holds everything a command needs, wired from the config file
type app struct {
	cfg     *config.Config
	store   *session.Store
	sess    *session.Session
	metrics *metrics.PrometheusRecorder
	credTTL *cache.Cache[models.JiraCredentials]

	artifacts *repositories.ArtifactRepository

	ws       *services.Workspace
	creds    *services.CredentialService
	syncer   *services.Syncer
	gen      *services.Generator
	auth     *services.AuthService
	search   *services.SearchService
	history  *services.HistoryService
	exporter *services.Exporter
}

func openApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()

	cfg, err := config.LoadConfig(configFile, !cmd.Flags().Changed("config"))
	if err != nil {
		return nil, cliErrorf("failed to load config: %v", err)
	}

	store, err := session.Open(cfg.Session.Path)
	if err != nil {
		return nil, cliErrorf("%v", err)
	}
	sess := session.New(store)

	credTTL, err := cache.New[models.JiraCredentials](cfg.Cache.MaxCostBytes, time.Duration(cfg.Cache.CredentialsTTLSeconds)*time.Second)
	if err != nil {
		store.Close()
		return nil, cliErrorf("%v", err)
	}

	rec := metrics.NewPrometheusRecorder()
	client := repositories.NewClient(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSeconds)*time.Second, sess,
		repositories.WithRecorder(rec),
		repositories.WithDebug(helpers.PrintDebug),
	)
	artifacts := repositories.NewArtifactRepository(client)
	tracker := repositories.NewTrackerRepository(client)

	guard, err := services.NewRegenerationGuard(ctx, sess)
	if err != nil {
		credTTL.Close()
		store.Close()
		return nil, err
	}
	ws := services.NewWorkspace(sess, guard)
	if err := ws.Restore(ctx); err != nil {
		credTTL.Close()
		store.Close()
		return nil, err
	}

	notify := helpers.Console{}
	creds := services.NewCredentialService(tracker, credTTL, sess)
	syncer := services.NewSyncer(tracker, creds, artifacts, ws, notify, rec)
	gen := services.NewGenerator(artifacts, ws, syncer, notify, rec)

	return &app{
		cfg:       cfg,
		store:     store,
		sess:      sess,
		metrics:   rec,
		credTTL:   credTTL,
		artifacts: artifacts,
		ws:        ws,
		creds:     creds,
		syncer:    syncer,
		gen:       gen,
		auth:      services.NewAuthService(repositories.NewAuthRepository(client), sess, ws, creds),
		search:    services.NewSearchService(repositories.NewSearchRepository(client)),
		history:   services.NewHistoryService(artifacts),
		exporter:  services.NewExporter(ws, cfg.Export.OutputDir),
	}, nil
}

// Close writes the metrics textfile, if configured, and releases the session
func (a *app) Close() {
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := a.metrics.WriteTextfile(path); err != nil {
			helpers.PrintWarning("Could not write metrics: %v", err)
		}
	}
	a.credTTL.Close()
	if err := a.store.Close(); err != nil {
		helpers.PrintDebug("closing session store: %v", err)
	}
}

// requireLogin fails unless a token pair is stored
func (a *app) requireLogin(ctx context.Context) error {
	if !a.sess.LoggedIn(ctx) {
		return cliErrorf("not logged in, run 'requirement-analyzer login' first")
	}
	return nil
}

// load fetches the lists under the current selections
func (a *app) load(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	return a.gen.Load(ctx)
}

// withApp opens the app around a command
func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, cliErrorf("invalid id %q", arg)
	}
	return id, nil
}

func parseKind(arg string) (models.ArtifactKind, error) {
	switch arg {
	case "epic", "epics":
		return models.KindEpic, nil
	case "story", "stories":
		return models.KindStory, nil
	case "qa":
		return models.KindQA, nil
	case "testplan", "testplans":
		return models.KindTestPlan, nil
	}
	return "", cliErrorf("unknown artifact kind %q (use epics, stories, qa or testplans)", arg)
}
