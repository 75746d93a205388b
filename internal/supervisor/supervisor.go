// Package supervisor runs the user program and decides when the process
// may exit once it has returned.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

const ConfirmationLine = "Content served successfully! Closing server..."

type Phase int32

const (
	Running Phase = iota
	WorkerFinished
	Draining
	Exiting
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case WorkerFinished:
		return "worker_finished"
	case Draining:
		return "draining"
	case Exiting:
		return "exiting"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Session is the part of the session state the supervisor reads and marks.
type Session interface {
	MarkFinished()
	Activity() (last time.Time, seen bool)
}

// Policy decides how long to wait for the browser after the program ends.
type Policy struct {
	PollInterval      time.Duration
	NoActivityTimeout time.Duration
	GracePeriod       time.Duration
	MinDrain          time.Duration
	MaxDrain          time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		PollInterval:      500 * time.Millisecond,
		NoActivityTimeout: 10 * time.Second,
		GracePeriod:       5 * time.Second,
		MinDrain:          3 * time.Second,
		MaxDrain:          30 * time.Second,
	}
}

// ShouldExit evaluates the drain rules. elapsed is measured from the start
// of the drain; lastActivity is meaningful only when seen is true.
func (p Policy) ShouldExit(now, drainStart, lastActivity time.Time, seen bool) bool {
	elapsed := now.Sub(drainStart)
	if !seen && elapsed > p.NoActivityTimeout {
		return true
	}
	if seen && now.Sub(lastActivity) > p.GracePeriod && elapsed > p.MinDrain {
		return true
	}
	return elapsed > p.MaxDrain
}

type Config struct {
	Session Session
	Policy  Policy
	Logger  *slog.Logger
	// Out receives the confirmation line. Defaults to os.Stdout.
	Out io.Writer
	// Exit ends the process. Defaults to os.Exit.
	Exit func(code int)
	// Now and Tick are replaced in tests.
	Now  func() time.Time
	Tick func(d time.Duration) (<-chan time.Time, func())
}

type Supervisor struct {
	session Session
	policy  Policy
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
	now     func() time.Time
	tick    func(time.Duration) (<-chan time.Time, func())

	phase atomic.Int32
}

func New(cfg Config) *Supervisor {
	s := &Supervisor{
		session: cfg.Session,
		policy:  cfg.Policy,
		logger:  cfg.Logger,
		out:     cfg.Out,
		exit:    cfg.Exit,
		now:     cfg.Now,
		tick:    cfg.Tick,
	}
	if s.policy.PollInterval <= 0 {
		s.policy = DefaultPolicy()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.exit == nil {
		s.exit = os.Exit
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.tick == nil {
		s.tick = func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		}
	}
	return s
}

func (s *Supervisor) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Supervisor) setPhase(p Phase) {
	s.phase.Store(int32(p))
	s.logger.Debug("supervisor phase", "phase", p.String())
}

// Run starts program on its own goroutine, waits for it, drains, and then
// calls Exit(0). It returns early with ctx.Err() if ctx ends first; Exit is
// not called in that case. A panic in program is not recovered.
func (s *Supervisor) Run(ctx context.Context, program func(ctx context.Context)) error {
	s.setPhase(Running)
	done := make(chan struct{})
	go func() {
		defer close(done)
		program(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.setPhase(WorkerFinished)
	s.session.MarkFinished()
	s.logger.Info("program finished, waiting for the browser")

	if err := s.drain(ctx); err != nil {
		return err
	}

	s.setPhase(Exiting)
	fmt.Fprintln(s.out, ConfirmationLine)
	s.exit(0)
	return nil
}

func (s *Supervisor) drain(ctx context.Context) error {
	s.setPhase(Draining)
	start := s.now()
	ticks, stop := s.tick(s.policy.PollInterval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			last, seen := s.session.Activity()
			now := s.now()
			if s.policy.ShouldExit(now, start, last, seen) {
				s.logger.Info("drain complete",
					"elapsed", now.Sub(start).Round(time.Millisecond).String(),
					"browser_seen", seen)
				return nil
			}
		}
	}
}
