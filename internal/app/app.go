// Package app assembles the bridge: session state, HTTP gateway, push hub,
// supervisor and the optional transcript.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/webconsole/console"
	"github.com/user/webconsole/internal/api"
	"github.com/user/webconsole/internal/browser"
	"github.com/user/webconsole/internal/config"
	"github.com/user/webconsole/internal/hub"
	"github.com/user/webconsole/internal/logger"
	"github.com/user/webconsole/internal/metrics"
	"github.com/user/webconsole/internal/server"
	"github.com/user/webconsole/internal/session"
	"github.com/user/webconsole/internal/style"
	"github.com/user/webconsole/internal/supervisor"
	"github.com/user/webconsole/internal/transcript"
	"github.com/user/webconsole/web"
)

// Program is the user code run against the console.
type Program func(c *console.Console)

type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	// Launcher opens the browser when cfg.Browser.Open is set.
	Launcher *browser.Launcher
	// OnListen is called with the bound address before the program starts.
	OnListen func(addr string)
}

// Run serves the console until the drain policy lets the process exit or
// ctx is cancelled. It returns the exit code chosen by the supervisor. A
// bind failure is returned before program runs.
func Run(ctx context.Context, cfg *config.Config, program Program, opts Options) (int, error) {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	log, closeLog, err := logger.New(cfg.Logging, stderr)
	if err != nil {
		return 1, err
	}
	defer closeLog()

	state := session.New()
	log = log.With("session", state.ID())

	m, err := metrics.New()
	if err != nil {
		return 1, fmt.Errorf("failed to create metrics: %w", err)
	}
	state.OnEvent(m.Observe)

	var cache *style.Cache
	if cfg.Cache.RenderMaxCost > 0 {
		if cache, err = style.NewCache(cfg.Cache.RenderMaxCost); err != nil {
			return 1, fmt.Errorf("failed to create render cache: %w", err)
		}
		defer cache.Close()
	}

	if cfg.Transcript.Path != "" {
		closeTranscript, err := startTranscript(ctx, cfg.Transcript.Path, state, log)
		if err != nil {
			return 1, err
		}
		defer closeTranscript()
	}

	assets, err := fs.Sub(web.Assets, "static")
	if err != nil {
		return 1, fmt.Errorf("failed to sub filesystem: %w", err)
	}

	h := hub.New(state, log)
	router := api.NewRouter(api.Options{
		Broker:      state,
		Assets:      assets,
		WebSocket:   h.HandleWebSocket,
		Logger:      log,
		ServiceName: cfg.Logging.Service,
	})
	srv := server.New(cfg.Addr(), router, log)
	if err := srv.Listen(); err != nil {
		return 1, err
	}
	if opts.OnListen != nil {
		opts.OnListen(srv.Addr())
	}

	url := "http://" + srv.Addr()
	fmt.Fprintf(stdout, "\nwebconsole running at %s\n\n", url)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	if cfg.Browser.Open {
		launcher := opts.Launcher
		if launcher == nil {
			launcher = &browser.Launcher{}
		}
		if launcher.Logger == nil {
			launcher.Logger = log
		}
		launcher.Open(runCtx, url)
	}

	exitCode := 0
	sup := supervisor.New(supervisor.Config{
		Session: state,
		Policy:  policyFrom(cfg.Supervisor),
		Logger:  log,
		Out:     stdout,
		Exit: func(code int) {
			exitCode = code
			stop()
		},
	})

	consoleOpts := []console.Option{console.WithMaxAttempts(cfg.Input.MaxAttempts)}
	if cache != nil {
		consoleOpts = append(consoleOpts, console.WithRenderer(cache))
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		h.Run(gctx)
		return nil
	})
	g.Go(func() error {
		err := sup.Run(gctx, func(pctx context.Context) {
			program(console.New(pctx, state, consoleOpts...))
		})
		stop()
		return err
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return 1, ctx.Err()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return 1, err
	}
	log.Debug("bridge stopped", "exit_code", exitCode)
	return exitCode, nil
}

func policyFrom(s config.Supervisor) supervisor.Policy {
	return supervisor.Policy{
		PollInterval:      s.PollInterval,
		NoActivityTimeout: s.NoActivityTimeout,
		GracePeriod:       s.GracePeriod,
		MinDrain:          s.MinDrain,
		MaxDrain:          s.MaxDrain,
	}
}

func startTranscript(ctx context.Context, path string, state *session.State, log *slog.Logger) (func(), error) {
	db, err := transcript.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	rec := transcript.NewRecorder(db, state.ID(), log)
	if err := rec.Start(ctx, time.Now()); err != nil {
		db.Close()
		return nil, err
	}
	state.OnEvent(rec.Observe)
	log.Info("recording transcript", "path", db.Path())
	return func() {
		rec.Close()
		if err := db.Close(); err != nil {
			log.Warn("failed to close transcript", "error", err)
		}
	}, nil
}
