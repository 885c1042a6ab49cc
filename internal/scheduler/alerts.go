package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kjannette/stroomslim-backend/internal/alerts"
	"github.com/kjannette/stroomslim-backend/internal/logging"
)

// ErrRunInProgress is returned when a run is requested while another one
// has not finished.
var ErrRunInProgress = errors.New("alert run already in progress")

// Runner executes one alert pass.
type Runner interface {
	Run(ctx context.Context) (*alerts.RunSummary, error)
}

type AlertSchedulerConfig struct {
	// Location defines the wall clock whose hour boundaries trigger runs.
	Location      *time.Location
	RunTimeout    time.Duration // e.g. 10*time.Minute
	OnRunComplete func(summary *alerts.RunSummary, err error)
	Logger        *slog.Logger
}

// AlertScheduler runs the alert pipeline at the top of every hour. After each
// run the timer is re-armed to the following boundary, so runs stay aligned
// even if one takes long, and a run that overlaps a boundary causes that
// hour to be skipped rather than queued.
type AlertScheduler struct {
	runner Runner
	cfg    AlertSchedulerConfig
	logger *slog.Logger

	untilNext func(now time.Time) time.Duration
	busy      atomic.Bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewAlertScheduler(runner Runner, cfg AlertSchedulerConfig) *AlertScheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 10 * time.Minute
	}
	loc := cfg.Location
	return &AlertScheduler{
		runner:    runner,
		cfg:       cfg,
		logger:    logging.OrDiscard(cfg.Logger).With("component", "scheduler"),
		untilNext: func(now time.Time) time.Duration { return NextRunWait(now, loc) },
	}
}

// UntilNextHour is the wait from now to the next whole hour on loc's wall
// clock. At an exact boundary it is a full hour.
func UntilNextHour(now time.Time, loc *time.Location) time.Duration {
	local := now.In(loc)
	into := time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	return time.Hour - into
}

// minRunGap keeps a timer that fires a little before the boundary from
// scheduling a second run for the same hour.
const minRunGap = time.Minute

// NextRunWait is UntilNextHour, pushed to the following hour when the
// boundary is less than minRunGap away.
func NextRunWait(now time.Time, loc *time.Location) time.Duration {
	d := UntilNextHour(now, loc)
	if d < minRunGap {
		d += time.Hour
	}
	return d
}

func (s *AlertScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn("alert scheduler already running")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.stopCh = make(chan struct{})
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.stopCh, s.done)

	first := time.Now().Add(s.untilNext(time.Now()))
	s.logger.Info("alert scheduler started",
		"first_run", first.In(s.cfg.Location).Format(time.RFC3339),
		"location", s.cfg.Location.String(),
	)
}

func (s *AlertScheduler) loop(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		timer := time.NewTimer(s.untilNext(time.Now()))
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
			if _, err := s.RunNow(ctx); errors.Is(err, ErrRunInProgress) {
				s.logger.Warn("previous alert run still in progress, skipping this hour")
			}
		}
	}
}

// Stop cancels any in-flight scheduled run and waits for the loop to exit.
func (s *AlertScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.cancel()
	done := s.done
	s.running = false
	s.mu.Unlock()

	<-done
	s.logger.Info("alert scheduler stopped")
}

func (s *AlertScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Busy reports whether a run is executing right now.
func (s *AlertScheduler) Busy() bool {
	return s.busy.Load()
}

// RunNow executes one pass outside the schedule, bounded by RunTimeout. It
// shares the overlap guard with scheduled runs.
func (s *AlertScheduler) RunNow(ctx context.Context) (*alerts.RunSummary, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.busy.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	summary, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("alert run failed", "error", err)
	}
	if s.cfg.OnRunComplete != nil {
		s.cfg.OnRunComplete(summary, err)
	}
	return summary, err
}
