package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/voidmaw/regflow/internal/browser"
	"github.com/voidmaw/regflow/internal/mailbox"
	"github.com/voidmaw/regflow/internal/motion"
	"github.com/voidmaw/regflow/internal/workflow"
)

// AccountRunner is the production Runner: each attempt gets a fresh browser
// session on the given proxy, its own motion synthesizer and a single-use
// workflow instance. The mailbox poller is shared; it limits its own
// connection concurrency.
type AccountRunner struct {
	session  browser.SessionOptions
	input    browser.InteractorOptions
	motion   motion.Config
	workflow workflow.Config
	poller   mailbox.Poller
	logger   *zap.Logger
}

// NewAccountRunner validates the per-attempt templates up front so failures
// surface at startup, not mid-batch.
func NewAccountRunner(session browser.SessionOptions, input browser.InteractorOptions, motionCfg motion.Config, workflowCfg workflow.Config, poller mailbox.Poller, logger *zap.Logger) (*AccountRunner, error) {
	if poller == nil {
		return nil, fmt.Errorf("orchestrator: poller is required")
	}
	if err := motionCfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountRunner{
		session:  session,
		input:    input,
		motion:   motionCfg,
		workflow: workflowCfg,
		poller:   poller,
		logger:   logger,
	}, nil
}

// Run drives one account through one browser session. Launch failures go
// through the same classification as workflow failures so a proxy that kills
// the browser at startup still triggers an endpoint swap.
func (r *AccountRunner) Run(ctx context.Context, account workflow.Account, proxyURL string) workflow.Outcome {
	opts := r.session
	opts.ProxyURL = proxyURL

	sess := browser.NewSession(opts, r.logger)
	if err := sess.Start(ctx); err != nil {
		return workflow.FailureFromError(fmt.Errorf("browser start: %w", err))
	}
	defer sess.Stop()

	synth, err := motion.New(r.motion)
	if err != nil {
		return workflow.FailureFromError(err)
	}
	interactor := browser.NewInteractor(sess.Driver(), synth, r.input, r.logger)

	creator, err := workflow.NewCreator(sess.Driver(), interactor, r.poller, r.workflow, r.logger)
	if err != nil {
		return workflow.FailureFromError(err)
	}
	return creator.CreateAccount(ctx, account)
}
