package cmd

import (
	"fmt"
	"time"

	"personamux/internal/adapters/archive/file"
	"personamux/internal/adapters/ipc"
	"personamux/internal/adapters/mux/tmux"
	statusadapter "personamux/internal/adapters/render/status"
	"personamux/internal/adapters/store/jsonfile"
	"personamux/internal/application"
	"personamux/internal/config"
	"personamux/internal/domain"
	"personamux/internal/ports"
)

type app struct {
	cfg config.Config

	store    ports.SessionStore
	archive  ports.ResponseArchive
	mux      *tmux.Client
	registry *application.PaneRegistry
	session  *application.SessionService
	wait     *application.WaitEngine
	broker   *ipc.Client

	statusRenderer func(state domain.SessionState, opts statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp(rootPath string) (*app, error) {
	cfg, err := config.Load(rootPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	clock := ports.SystemClock{}
	store := jsonfile.NewStore(cfg.SessionFile, cfg.TmuxSession, cfg.RootPath, cfg.LockTimeout, clock)
	archive := file.NewArchive(cfg.ResponsesDir)
	muxClient := tmux.NewClient(cfg.TmuxSession)

	return &app{
		cfg:      cfg,
		store:    store,
		archive:  archive,
		mux:      muxClient,
		registry: application.NewPaneRegistry(store, muxClient),
		session:  application.NewSessionService(store, clock),
		wait:     application.NewWaitEngine(store, archive, cfg.PollInterval),
		broker:   ipc.NewClient(cfg.SocketPath),

		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}, nil
}
