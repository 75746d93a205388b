// Package browser opens the console page in the user's default browser.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

const defaultDelay = 500 * time.Millisecond

// Launcher starts the platform opener after a short delay so the server is
// accepting connections by the time the browser asks.
type Launcher struct {
	Delay  time.Duration
	Logger *slog.Logger
	// Command builds the opener invocation. Defaults to CommandFor(runtime.GOOS).
	Command func(url string) (name string, args []string)
	run     func(ctx context.Context, name string, args ...string) error
}

// CommandFor returns the opener for goos.
func CommandFor(goos string) func(url string) (string, []string) {
	switch goos {
	case "windows":
		return func(url string) (string, []string) { return "cmd", []string{"/c", "start", url} }
	case "darwin":
		return func(url string) (string, []string) { return "open", []string{url} }
	default:
		return func(url string) (string, []string) { return "xdg-open", []string{url} }
	}
}

// Open launches the browser in the background. Failures are logged at
// debug level: the URL is printed anyway.
func (l *Launcher) Open(ctx context.Context, url string) <-chan error {
	delay := l.Delay
	if delay <= 0 {
		delay = defaultDelay
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	command := l.Command
	if command == nil {
		command = CommandFor(runtime.GOOS)
	}
	run := l.run
	if run == nil {
		run = start
	}

	done := make(chan error, 1)
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
			done <- ctx.Err()
			return
		case <-time.After(delay):
		}
		name, args := command(url)
		if err := run(ctx, name, args...); err != nil {
			logger.Debug("failed to open browser", "url", url, "error", err)
			done <- err
		}
	}()
	return done
}

// start spawns the opener without waiting for it: xdg-open may block until
// the browser exits.
func start(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(context.WithoutCancel(ctx), name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
