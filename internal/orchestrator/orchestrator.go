package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/voidmaw/regflow/internal/workflow"
)

// Runner executes one account attempt in a fresh browser session. proxyURL
// is empty when the attempt runs without a proxy.
type Runner interface {
	Run(ctx context.Context, account workflow.Account, proxyURL string) workflow.Outcome
}

// Options tunes the concurrent run.
type Options struct {
	// Parallel is the worker pool size.
	Parallel int
	// StaggerDelay spaces out the first wave of workers so they do not all
	// hit the target at the same instant. The nth runnable account waits
	// n*StaggerDelay.
	StaggerDelay time.Duration
	// MaxProxySwaps is an optional cap on proxy-failure retries per account.
	// Zero means no cap: retries continue until the pool exhausts, the
	// failure turns fatal, or the run is cancelled.
	MaxProxySwaps int
}

// DefaultOptions mirrors the production run shape.
func DefaultOptions() Options {
	return Options{
		Parallel:     3,
		StaggerDelay: 3 * time.Second,
	}
}

// Validate reports unusable option combinations.
func (o Options) Validate() error {
	if o.Parallel < 1 {
		return fmt.Errorf("orchestrator: parallel must be >= 1, got %d", o.Parallel)
	}
	if o.StaggerDelay < 0 {
		return fmt.Errorf("orchestrator: stagger delay must be >= 0")
	}
	if o.MaxProxySwaps < 0 {
		return fmt.Errorf("orchestrator: max proxy swaps must be >= 0")
	}
	return nil
}

// Summary is the aggregate result of one concurrent run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// Orchestrator fans a batch of accounts across a bounded worker pool, one
// browser session per attempt, swapping proxies on connectivity failures.
type Orchestrator struct {
	runner    Runner
	rotation  *Rotation
	completed *CompletionSet
	results   *ResultLog
	opts      Options
	logger    *zap.Logger
}

// New wires an orchestrator. results may be nil when persistence is not
// wanted, e.g. in dry runs.
func New(runner Runner, rotation *Rotation, completed *CompletionSet, results *ResultLog, opts Options, logger *zap.Logger) (*Orchestrator, error) {
	if runner == nil {
		return nil, fmt.Errorf("orchestrator: runner is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if rotation == nil {
		rotation = NewRotation(nil, false)
	}
	if completed == nil {
		completed = NewCompletionSet(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		runner:    runner,
		rotation:  rotation,
		completed: completed,
		results:   results,
		opts:      opts,
		logger:    logger.Named("orchestrator"),
	}, nil
}

// Run processes the batch and blocks until every worker has finished or the
// context is cancelled. Cancellation is cooperative: in-flight attempts run
// to their next context check, queued accounts are skipped.
func (o *Orchestrator) Run(ctx context.Context, accounts []workflow.Account) Summary {
	sem := semaphore.NewWeighted(int64(o.opts.Parallel))

	var (
		mu      sync.Mutex
		summary = Summary{Total: len(accounts)}
		wg      sync.WaitGroup
	)
	tally := func(f func(*Summary)) {
		mu.Lock()
		defer mu.Unlock()
		f(&summary)
	}

	o.logger.Info("Starting batch",
		zap.Int("accounts", len(accounts)),
		zap.Int("parallel", o.opts.Parallel),
		zap.Int("proxies", o.rotation.Live()))

	launched := 0
	for i, account := range accounts {
		if ctx.Err() != nil {
			tally(func(s *Summary) { s.Skipped += len(accounts) - i })
			break
		}

		if !o.completed.Claim(account.Email) {
			o.logger.Info("Skipping account, already completed",
				zap.String("email", account.Email))
			tally(func(s *Summary) { s.Skipped++ })
			continue
		}

		// Stagger counts claimed dispatches, not batch positions, so the
		// first wave stays spread out even when leading rows are skipped.
		stagger := time.Duration(0)
		if launched < o.opts.Parallel {
			stagger = time.Duration(launched) * o.opts.StaggerDelay
		}
		launched++

		wg.Add(1)
		go func(account workflow.Account, stagger time.Duration) {
			defer wg.Done()

			if err := sleepCtx(ctx, stagger); err != nil {
				o.completed.Release(account.Email)
				tally(func(s *Summary) { s.Skipped++ })
				return
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				o.completed.Release(account.Email)
				tally(func(s *Summary) { s.Skipped++ })
				return
			}
			defer sem.Release(1)
			if ctx.Err() != nil {
				o.completed.Release(account.Email)
				tally(func(s *Summary) { s.Skipped++ })
				return
			}

			outcome := o.runWithProxySwap(ctx, account)
			if outcome.Succeeded() {
				o.persist(account)
				tally(func(s *Summary) { s.Succeeded++ })
				return
			}
			o.completed.Release(account.Email)
			tally(func(s *Summary) { s.Failed++ })
			o.logger.Warn("Account failed",
				zap.String("email", account.Email),
				zap.String("kind", string(outcome.Kind)),
				zap.String("detail", outcome.Detail))
		}(account, stagger)
	}

	wg.Wait()
	o.logger.Info("Batch finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped))
	return summary
}

// runWithProxySwap retries an account on proxy-class failures with a fresh
// endpoint each time. Static endpoints that failed are quarantined for the
// rest of the run, so swaps stop when the pool is exhausted. Rotating
// gateways and proxyless runs cannot exhaust and retry until the failure
// turns fatal or the run is cancelled, unless MaxProxySwaps caps them.
func (o *Orchestrator) runWithProxySwap(ctx context.Context, account workflow.Account) workflow.Outcome {
	log := o.logger.With(zap.String("email", account.Email))

	for swaps := 0; ; swaps++ {
		var (
			proxy    Endpoint
			proxyURL string
		)
		if !o.rotation.Empty() {
			var err error
			proxy, err = o.rotation.Next()
			if err != nil {
				return workflow.Failure(workflow.KindProxyConnectivity, "all proxies exhausted")
			}
			proxyURL = proxy.URL()
			log.Info("Attempting account", zap.String("proxy", proxy.Display()), zap.Int("swap", swaps))
		} else {
			log.Info("Attempting account without proxy", zap.Int("swap", swaps))
		}

		outcome := o.runner.Run(ctx, account, proxyURL)
		if !outcome.Retryable() {
			return outcome
		}
		if ctx.Err() != nil {
			return outcome
		}

		if proxyURL != "" {
			o.rotation.Quarantine(proxy)
			log.Warn("Proxy failure, swapping endpoint",
				zap.String("proxy", proxy.Display()),
				zap.String("detail", outcome.Detail))
			if o.rotation.Live() <= 0 {
				return workflow.Failure(workflow.KindProxyConnectivity, "all proxies exhausted")
			}
			// Rotating gateways are never quarantined and keep cycling.
			if o.rotation.rotating && o.swapCapReached(swaps) {
				return outcome
			}
			continue
		}
		if o.swapCapReached(swaps) {
			return outcome
		}
	}
}

// swapCapReached honors the optional MaxProxySwaps limit. Zero disables it.
func (o *Orchestrator) swapCapReached(swaps int) bool {
	return o.opts.MaxProxySwaps > 0 && swaps+1 >= o.opts.MaxProxySwaps
}

// persist appends the success row. A write failure is logged loudly but does
// not undo the registration; the account exists either way.
func (o *Orchestrator) persist(account workflow.Account) {
	if o.results == nil {
		return
	}
	if err := o.results.Append(account); err != nil {
		o.logger.Error("Result write failed",
			zap.String("email", account.Email), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
