// Package workflow implements the fixed linear account-creation protocol:
// email, one-time code, birthdate, username, password, consent, verification.
// One Creator instance drives exactly one account through one browser session
// and reports a tagged Outcome to the orchestrator.
package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/voidmaw/regflow/internal/browser"
	"github.com/voidmaw/regflow/internal/mailbox"
)

// stageCount is the number of narrated top-level stages.
const stageCount = 8

// Creator is a one-shot state machine instance. Stages execute strictly in
// order; the only backward motion is the embedded code resend sub-loop.
type Creator struct {
	driver browser.PageDriver
	input  *browser.Interactor
	poller mailbox.Poller
	cfg    Config
	logger *zap.Logger

	used atomic.Bool
}

// NewCreator wires a workflow instance to its session-scoped collaborators.
func NewCreator(driver browser.PageDriver, input *browser.Interactor, poller mailbox.Poller, cfg Config, logger *zap.Logger) (*Creator, error) {
	if driver == nil || input == nil || poller == nil {
		return nil, fmt.Errorf("workflow: driver, interactor and poller are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Creator{
		driver: driver,
		input:  input,
		poller: poller,
		cfg:    cfg,
		logger: logger.Named("workflow"),
	}, nil
}

// CreateAccount runs the full protocol for one account. The instance is
// single-use; a second call reports a fatal failure immediately.
func (c *Creator) CreateAccount(ctx context.Context, account Account) Outcome {
	if !c.used.CompareAndSwap(false, true) {
		return Failure(KindBrowser, "workflow instance already consumed")
	}

	log := c.logger.With(zap.String("email", account.Email), zap.String("username", account.Username))

	outcome := c.run(ctx, log, account)
	if !outcome.Succeeded() {
		// Postmortem evidence; never escalate a screenshot failure.
		c.captureFailureScreenshot(ctx, log, account)
	}
	return outcome
}

func (c *Creator) run(ctx context.Context, log *zap.Logger, account Account) Outcome {
	log.Info(c.stage(1, "Navigating to signup form"))
	if err := c.navigateToSignup(ctx); err != nil {
		return FailureFromError(err)
	}

	log.Info(c.stage(2, "Entering email"))
	if err := c.enterEmail(ctx, account.Email); err != nil {
		return FailureFromError(err)
	}
	c.clearMarketingOptIns(ctx)

	// Snapshot the mailbox before submitting: codes already present must
	// never be mistaken for the one this submission triggers.
	baseline, err := c.poller.BaselineCodes(ctx, account.Email)
	if err != nil {
		return FailureFromError(err)
	}
	log.Info("Mailbox baseline captured", zap.Int("existing_codes", len(baseline)))

	if err := c.submitStage(ctx); err != nil {
		return FailureFromError(err)
	}

	log.Info(c.stage(3, "Waiting for verification code"))
	code, outcome := c.awaitCode(ctx, log, account.Email, baseline)
	if code == "" {
		return outcome
	}

	log.Info(c.stage(4, "Entering verification code"))
	if err := c.enterCode(ctx, code); err != nil {
		return FailureFromError(err)
	}
	if err := c.submitCode(ctx); err != nil {
		return FailureFromError(err)
	}

	log.Info(c.stage(5, "Entering birthdate"))
	if err := c.enterBirthdate(ctx, account.Birthdate); err != nil {
		return FailureFromError(err)
	}
	if err := c.submitStage(ctx); err != nil {
		return FailureFromError(err)
	}

	log.Info(c.stage(6, "Entering username"))
	if err := c.enterUsername(ctx, account.Username); err != nil {
		return FailureFromError(err)
	}
	if err := c.submitStage(ctx); err != nil {
		return FailureFromError(err)
	}

	log.Info(c.stage(7, "Entering password"))
	if err := c.enterPassword(ctx, account.Password); err != nil {
		return FailureFromError(err)
	}
	if err := c.submitStage(ctx); err != nil {
		return FailureFromError(err)
	}

	log.Info(c.stage(8, "Accepting terms"))
	if err := c.acceptTerms(ctx); err != nil {
		return FailureFromError(err)
	}

	log.Info("Verifying account creation", zap.Duration("settle_wait", c.cfg.SettleWait))
	verified, location, err := c.verifyCreated(ctx)
	if err != nil {
		return FailureFromError(err)
	}
	if !verified {
		return Failure(KindUnverified, fmt.Sprintf("creation not confirmed, ended at %s", location))
	}

	log.Info("Account created and verified")
	return Success()
}

// awaitCode implements the wait/resend sub-loop: wait for a fresh code, and
// on each timeout trigger a resend, up to MaxOTPRetries resends. The baseline
// stays fixed across resends; a resent code is itself a new code.
func (c *Creator) awaitCode(ctx context.Context, log *zap.Logger, email string, baseline mailbox.CodeSet) (string, Outcome) {
	for attempt := 0; attempt <= c.cfg.MaxOTPRetries; attempt++ {
		if attempt > 0 {
			log.Info("Requesting code resend",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", c.cfg.MaxOTPRetries+1))
			if err := c.resendCode(ctx); err != nil {
				return "", FailureFromError(err)
			}
		}

		code, err := c.poller.PollNewCode(ctx, email, baseline, c.cfg.CodeWaitTimeout)
		if err != nil {
			return "", FailureFromError(err)
		}
		if code != "" {
			log.Info("Verification code received")
			return code, Outcome{}
		}
		log.Warn("No verification code within timeout",
			zap.Duration("timeout", c.cfg.CodeWaitTimeout))
	}
	return "", Failure(KindCodeTimeout,
		fmt.Sprintf("no verification code after %d attempts", c.cfg.MaxOTPRetries+1))
}

// captureFailureScreenshot saves the final page state keyed by the account's
// username. Best-effort only.
func (c *Creator) captureFailureScreenshot(ctx context.Context, log *zap.Logger, account Account) {
	path := filepath.Join(c.cfg.ScreenshotDir, fmt.Sprintf("error_%s.png", account.Username))
	if err := c.driver.Screenshot(ctx, path); err != nil {
		log.Debug("Failure screenshot not captured", zap.Error(err))
		return
	}
	log.Info("Failure screenshot saved", zap.String("path", path))
}

func (c *Creator) stage(n int, msg string) string {
	return fmt.Sprintf("[%d/%d] %s", n, stageCount, msg)
}
