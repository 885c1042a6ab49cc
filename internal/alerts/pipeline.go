package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/kjannette/stroomslim-backend/internal/logging"
	"github.com/kjannette/stroomslim-backend/internal/models"
)

// ErrUpstreamPriceUnavailable aborts a run before any user is evaluated.
var ErrUpstreamPriceUnavailable = errors.New("current price unavailable")

// PriceSource returns the market price for the hour containing now.
type PriceSource interface {
	CurrentPrice(ctx context.Context, now time.Time) (models.PricePoint, error)
}

type RunSummary struct {
	RunID         string        `json:"runId"`
	StartedAt     time.Time     `json:"startedAt"`
	Price         float64       `json:"price"`
	PriceSource   string        `json:"priceSource"`
	Candidates    int           `json:"candidates"`
	Sent          int           `json:"sent"`
	SendFailed    int           `json:"sendFailed"`
	PersistFailed int           `json:"persistFailed"`
	Duration      time.Duration `json:"duration"`
}

func (s *RunSummary) String() string {
	return fmt.Sprintf("alert run %s: price €%.1f/MWh (%s), %d candidates, %d sent, %d send failures, %d persist failures in %s",
		s.RunID, s.Price, s.PriceSource, s.Candidates, s.Sent, s.SendFailed, s.PersistFailed, s.Duration.Round(time.Millisecond))
}

type PipelineOptions struct {
	// Concurrency bounds how many candidates are processed at once. 1 (the
	// default) processes them in order.
	Concurrency int
	Logger      *slog.Logger
	Now         func() time.Time
}

// Pipeline is one full alert pass: price, selection, then send and
// mark-sent per candidate.
type Pipeline struct {
	prices      PriceSource
	selector    *Selector
	dispatcher  *Dispatcher
	recorder    *Recorder
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

func NewPipeline(prices PriceSource, selector *Selector, dispatcher *Dispatcher, recorder *Recorder, opts PipelineOptions) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	selector.now = opts.Now
	return &Pipeline{
		prices:      prices,
		selector:    selector,
		dispatcher:  dispatcher,
		recorder:    recorder,
		concurrency: opts.Concurrency,
		logger:      logging.OrDiscard(opts.Logger).With("component", "alerts"),
		now:         opts.Now,
	}
}

// Run executes one pass. A returned error means the run aborted before any
// email went out; per-recipient failures are only counted in the summary.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	start := p.now()
	summary := &RunSummary{
		RunID:     ulid.Make().String(),
		StartedAt: start.UTC(),
	}
	log := p.logger.With("run_id", summary.RunID)
	log.Info("checking price alerts")

	point, err := p.prices.CurrentPrice(ctx, start)
	if err != nil {
		summary.Duration = p.now().Sub(start)
		log.Error("alert run aborted: no current price", "error", err)
		return summary, fmt.Errorf("%w: %w", ErrUpstreamPriceUnavailable, err)
	}
	summary.Price = point.PriceEURMWh
	summary.PriceSource = point.Source
	log.Info("current price", "eur_mwh", point.PriceEURMWh, "source", point.Source, "at", point.Timestamp)

	candidates, err := p.selector.SelectCandidates(ctx, point.PriceEURMWh)
	if err != nil {
		summary.Duration = p.now().Sub(start)
		log.Error("alert run aborted: candidate query failed", "error", err)
		return summary, err
	}
	summary.Candidates = len(candidates)
	log.Info("selected alert candidates", "count", len(candidates))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			outcome := p.process(gctx, log, summary.RunID, c)
			mu.Lock()
			switch outcome {
			case outcomeSent:
				summary.Sent++
			case outcomeSendFailed:
				summary.SendFailed++
			case outcomePersistFailed:
				summary.Sent++
				summary.PersistFailed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = p.now().Sub(start)
	log.Info("alert check complete",
		"sent", summary.Sent,
		"send_failed", summary.SendFailed,
		"persist_failed", summary.PersistFailed,
		"duration", summary.Duration,
	)
	return summary, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSendFailed
	outcomePersistFailed
)

// process handles one candidate. Nothing here is shared with other
// candidates, so a failure stays with this user.
func (p *Pipeline) process(ctx context.Context, log *slog.Logger, runID string, c models.AlertCandidate) outcome {
	log = log.With("user_id", c.User.ID.String(), "recipient", logging.MaskEmail(c.User.Email))

	if err := p.dispatcher.Send(ctx, runID, c); err != nil {
		log.Error("alert send failed", "error", err)
		return outcomeSendFailed
	}

	if err := p.recorder.MarkSent(ctx, c.User.ID, p.now()); err != nil {
		// The email went out; the user may get a duplicate next run.
		log.Error("alert sent but not recorded", "error", err)
		return outcomePersistFailed
	}

	log.Info("alert sent", "price", c.CurrentPrice, "threshold", c.Threshold)
	return outcomeSent
}
