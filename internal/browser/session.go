package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/voidmaw/regflow/internal/retry"
)

// SessionOptions configures one browser session. A session is bound to a
// single workflow instance and a single proxy endpoint.
type SessionOptions struct {
	Headless bool
	// ProxyURL routes all tab traffic through a forward proxy when non-empty.
	ProxyURL string
	// StartRetries is how many times a failed browser launch is re-attempted.
	StartRetries   int
	StartRetryWait time.Duration
	WindowWidth    int
	WindowHeight   int
	// ActionTimeout bounds each individual CDP action issued by the driver.
	ActionTimeout time.Duration
	// RetryPolicy shields every remote page interaction from transient
	// failure at single-action granularity.
	RetryPolicy retry.Policy
}

// DefaultSessionOptions mirrors the launch profile used in production runs.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Headless:       false,
		StartRetries:   2,
		StartRetryWait: 2 * time.Second,
		WindowWidth:    1280,
		WindowHeight:   900,
		ActionTimeout:  20 * time.Second,
		RetryPolicy:    retry.DefaultPolicy(),
	}
}

// Session owns a Chrome process and one driven tab. It is not safe for
// concurrent use; each workflow instance gets its own session.
type Session struct {
	opts   SessionOptions
	logger *zap.Logger

	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
	tabCtx      context.Context
	driver      *CDPDriver
}

// NewSession prepares an unstarted session.
func NewSession(opts SessionOptions, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{opts: opts, logger: logger.Named("browser")}
}

// Start launches the browser, retrying a limited number of times because
// Chrome occasionally fails to bind its debugging port under load.
func (s *Session) Start(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= s.opts.StartRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.launch(ctx); err != nil {
			lastErr = err
			s.logger.Warn("Browser start attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", s.opts.StartRetries+1),
				zap.Error(err))
			s.teardown()
			if attempt < s.opts.StartRetries {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(s.opts.StartRetryWait):
				}
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("browser: failed to start after %d attempts: %w", s.opts.StartRetries+1, lastErr)
}

func (s *Session) launch(ctx context.Context) error {
	allocOpts := append([]chromedp.ExecAllocatorOption{},
		chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
		chromedp.WindowSize(s.opts.WindowWidth, s.opts.WindowHeight),
	)
	if s.opts.ProxyURL != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(s.opts.ProxyURL))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	s.allocCancel = allocCancel
	s.tabCancel = tabCancel
	s.tabCtx = tabCtx

	// The first Run materializes the browser process and the initial tab.
	if err := chromedp.Run(tabCtx); err != nil {
		return fmt.Errorf("browser: launch failed: %w", err)
	}

	s.driver = newCDPDriver(tabCtx, s.opts, s.logger)
	s.logger.Debug("Browser session started",
		zap.Bool("headless", s.opts.Headless),
		zap.Bool("proxied", s.opts.ProxyURL != ""))
	return nil
}

// Driver returns the page driver for the session's tab. It is nil before a
// successful Start.
func (s *Session) Driver() *CDPDriver { return s.driver }

// Stop tears the browser down. It is best-effort and safe to call on a
// session that never started.
func (s *Session) Stop() {
	s.teardown()
	s.logger.Debug("Browser session stopped")
}

func (s *Session) teardown() {
	if s.tabCancel != nil {
		s.tabCancel()
		s.tabCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	s.tabCtx = nil
	s.driver = nil
}
