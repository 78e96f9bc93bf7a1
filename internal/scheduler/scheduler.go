package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"ChannelScout/internal/memory"
	"ChannelScout/internal/notifier"
	"ChannelScout/internal/scanner"
)

// Runner is the scan the scheduler triggers.
type Runner interface {
	Run(ctx context.Context) (*scanner.RunSummary, error)
	Last() *scanner.RunSummary
	Memory(ctx context.Context) (memory.Snapshot, error)
}

// Scheduler triggers scans on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron       *cron.Cron
	Runner     Runner
	Timeframes []string
	Location   *time.Location
	Ctx        context.Context

	running atomic.Bool
	log     zerolog.Logger
}

// NewScheduler creates a new Scheduler. Cron specs use six fields (with seconds).
func NewScheduler(ctx context.Context, runner Runner, timeframes []string, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	l := log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: l}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Runner:     runner,
		Timeframes: timeframes,
		Location:   loc,
		Ctx:        ctx,
		log:        l,
	}
}

// Register adds the scan job.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.scanTask); err != nil {
		return fmt.Errorf("register scan task %q: %w", spec, err)
	}
	s.log.Info().Str("cron", spec).Msg("scan task registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes a scan immediately (manual trigger / run on start).
func (s *Scheduler) RunNow() (*scanner.RunSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, scanner.ErrRunInProgress
	}
	defer s.running.Store(false)
	return s.Runner.Run(s.Ctx)
}

func (s *Scheduler) scanTask() {
	s.log.Info().Msg("running scheduled scan")
	if _, err := s.RunNow(); err != nil {
		if errors.Is(err, scanner.ErrRunInProgress) {
			s.log.Warn().Msg("previous scan still running, skipped")
			return
		}
		// the scanner already logged the failure with its run id
		s.log.Debug().Err(err).Msg("scheduled scan failed")
	}
}

const helpText = "Available commands:\n• /scan run a scan now\n• /status last scan summary\n• /memory alerts remembered for dedup"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // "/scan@MyBot" in group chats
	}

	switch cmd {
	case "/scan":
		if s.running.Load() {
			return "⏳ A scan is already running."
		}
		go s.scanTask()
		return "🔎 Scan started."
	case "/status":
		return notifier.FormatStatus(s.Runner.Last().Status(), s.Timeframes, s.Location)
	case "/memory":
		snap, err := s.Runner.Memory(ctx)
		if err != nil {
			return fmt.Sprintf("⚠️ Memory unreadable: %v", err)
		}
		return notifier.FormatMemory(snap, s.Timeframes)
	default:
		return helpText
	}
}

// cronLogger routes cron's internal logging to zerolog.
type cronLogger struct{ log zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
