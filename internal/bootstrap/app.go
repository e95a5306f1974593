package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Denis-Joly/QuickScript/internal/config"
	"github.com/Denis-Joly/QuickScript/internal/diagnostics"
	"github.com/Denis-Joly/QuickScript/internal/domain"
	"github.com/Denis-Joly/QuickScript/internal/export"
	"github.com/Denis-Joly/QuickScript/internal/jobs"
	"github.com/Denis-Joly/QuickScript/internal/media"
	"github.com/Denis-Joly/QuickScript/internal/pipeline"
	"github.com/Denis-Joly/QuickScript/internal/server"
	"github.com/Denis-Joly/QuickScript/internal/storage"
)

// App wires configuration, storage, jobs, pipeline, and the HTTP API.
type App struct {
	Config      config.Config
	Store       *jobs.Store
	Scheduler   *jobs.Scheduler
	Workspace   *storage.Workspace
	Diagnostics domain.DiagnosticReport

	httpServer *http.Server
	sweepStop  chan struct{}
}

// New builds the application from environment configuration.
func New() (*App, error) {
	return NewWithConfig(config.Load())
}

// NewWithConfig builds the application from explicit configuration.
func NewWithConfig(cfg config.Config) (*App, error) {
	workspace, err := storage.NewWorkspace(cfg.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("prepare scratch space: %w", err)
	}

	store := jobs.NewStore()
	caps := pipeline.Capabilities{
		Acquire:    media.NewDownloader(cfg.YtdlpBin, workspace.UploadsDir()),
		Extract:    media.NewAudioExtractor(cfg.FFmpegBin),
		Transcribe: media.NewWhisperTranscriber(cfg.WhisperBin, cfg.ModelPath, cfg.Language),
		Structure:  media.NewMarkdownStructurer(cfg.StructurerBin),
	}
	runner := pipeline.NewRunner(store, workspace, caps, cfg.StageTimeout)
	scheduler := jobs.NewScheduler(store, runner, cfg.MaxActiveJobs, cfg.MaxPendingJobs)

	report := diagnostics.NewChecker().Run(cfg)
	for _, item := range report.Items {
		if item.Status == domain.DiagnosticStatusFail {
			log.Printf("diagnostics: %s failed: %s", item.ID, item.Message)
		}
	}

	renderer := export.NewRenderer(cfg.WkhtmltopdfBin)
	srv := server.New(cfg, store, scheduler, renderer, workspace, report)

	return &App{
		Config:      cfg,
		Store:       store,
		Scheduler:   scheduler,
		Workspace:   workspace,
		Diagnostics: report,
		httpServer: &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: srv.Engine(),
		},
		sweepStop: make(chan struct{}),
	}, nil
}

// Run serves the API until interrupted, then drains jobs and shuts down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if n, err := a.Workspace.Sweep(a.Config.ScratchMaxAge); err != nil {
		log.Printf("startup sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("startup sweep removed %d stale entries", n)
	}
	go a.sweepLoop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", a.Config.ListenAddr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("shutting down")
	close(a.sweepStop)

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Scheduler.Shutdown(drainCtx); err != nil {
		log.Printf("scheduler drain: %v", err)
	}
	return a.httpServer.Shutdown(drainCtx)
}

// sweepLoop periodically removes stale scratch entries.
func (a *App) sweepLoop() {
	ticker := time.NewTicker(a.Config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n, err := a.Workspace.Sweep(a.Config.ScratchMaxAge); err != nil {
				log.Printf("periodic sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("periodic sweep removed %d stale entries", n)
			}
		case <-a.sweepStop:
			return
		}
	}
}
