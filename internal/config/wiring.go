package config

import (
	"github.com/voidmaw/regflow/internal/browser"
	"github.com/voidmaw/regflow/internal/mailbox"
	"github.com/voidmaw/regflow/internal/motion"
	"github.com/voidmaw/regflow/internal/orchestrator"
	"github.com/voidmaw/regflow/internal/retry"
	"github.com/voidmaw/regflow/internal/workflow"
)

// Converters from the flat configuration tree to the option types each
// package defines for itself.

func (c MotionConfig) ToMotion() motion.Config {
	return motion.Config{
		SpeedFactor:       c.SpeedFactor,
		ZigzagProbability: c.ZigzagProbability,
		MinNodes:          c.MinNodes,
		MaxNodes:          c.MaxNodes,
		VarianceFactor:    c.VarianceFactor,
		MaxVariance:       c.MaxVariance,
		SamplesPerPath:    c.SamplesPerPath,
	}
}

func (c RetryConfig) ToPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.BaseDelay,
		MaxDelay:    c.MaxDelay,
		Exponential: c.Exponential,
	}
}

func (c Config) SessionOptions() browser.SessionOptions {
	return browser.SessionOptions{
		Headless:       c.Browser.Headless,
		StartRetries:   c.Browser.StartRetries,
		StartRetryWait: c.Browser.StartRetryWait,
		WindowWidth:    c.Browser.WindowWidth,
		WindowHeight:   c.Browser.WindowHeight,
		ActionTimeout:  c.Browser.ActionTimeout,
		RetryPolicy:    c.Retry.ToPolicy(),
	}
}

func (c Config) InteractorOptions() browser.InteractorOptions {
	return browser.InteractorOptions{
		Speed:       c.Browser.Speed,
		DebugCursor: c.Browser.DebugCursor,
	}
}

// WorkflowConfig builds the workflow configuration from the built-in selector
// set plus the file-tunable site knobs.
func (c Config) WorkflowConfig() workflow.Config {
	wf := workflow.DefaultConfig()
	wf.MaxOTPRetries = c.Workflow.MaxOTPRetries
	wf.CodeWaitTimeout = c.Workflow.CodeWaitTimeout
	wf.SettleWait = c.Workflow.SettleWait
	wf.ScreenshotDir = c.Workflow.ScreenshotDir
	if c.Workflow.SearchQuery != "" {
		wf.Site.SearchQuery = c.Workflow.SearchQuery
	}
	if c.Workflow.VerifiedURLSubstring != "" {
		wf.Site.VerifiedURLSubstring = c.Workflow.VerifiedURLSubstring
	}
	return wf
}

func (c Config) MailboxConfig() mailbox.ClientConfig {
	return mailbox.ClientConfig{
		Addr:             c.Mail.Addr,
		Username:         c.Mail.Username,
		Password:         c.Mail.Password,
		Sender:           c.Mail.Sender,
		Mailbox:          c.Mail.Mailbox,
		SubjectPattern:   c.Mail.SubjectPattern,
		PollInterval:     c.Mail.PollInterval,
		MaxConnections:   int64(c.Mail.MaxConnections),
		FetchesPerSecond: c.Mail.FetchesPerSecond,
	}
}

func (c Config) OrchestratorOptions() orchestrator.Options {
	return orchestrator.Options{
		Parallel:      c.Orchestrator.Parallel,
		StaggerDelay:  c.Orchestrator.StaggerDelay,
		MaxProxySwaps: c.Orchestrator.MaxProxySwaps,
	}
}
