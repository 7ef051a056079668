package cmd

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/voidmaw/regflow/internal/accounts"
	"github.com/voidmaw/regflow/internal/mailbox"
	"github.com/voidmaw/regflow/internal/observability"
	"github.com/voidmaw/regflow/internal/orchestrator"
)

// newRunCmd creates the `run` command: load the batch, fan it across the
// worker pool and append successes to the results file.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [parallel]",
		Short: "Register the account batch through concurrent browser workflows",
		Long: `Run loads the account batch and registers each account through its own
browser session. Completed accounts recorded in the results file are skipped,
so an interrupted run can be restarted on the same inputs.

The optional positional argument overrides the worker pool size.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("orchestrator.accounts_file", cmd.Flags().Lookup("accounts")); err != nil {
				return err
			}
			if err := viper.BindPFlag("orchestrator.proxy_file", cmd.Flags().Lookup("proxies")); err != nil {
				return err
			}
			if err := viper.BindPFlag("orchestrator.results_file", cmd.Flags().Lookup("results")); err != nil {
				return err
			}
			return viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				parallel, err := strconv.Atoi(args[0])
				if err != nil || parallel < 1 {
					return fmt.Errorf("parallel must be a positive integer, got %q", args[0])
				}
				cfg.Orchestrator.Parallel = parallel
			}

			runID := uuid.New().String()
			log := logger.With(zap.String("run_id", runID))

			batch, err := accounts.LoadAccounts(cfg.Orchestrator.AccountsFile)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				log.Warn("Account batch is empty, nothing to do",
					zap.String("accounts_file", cfg.Orchestrator.AccountsFile))
				return nil
			}

			completedEmails, err := orchestrator.CompletedEmails(cfg.Orchestrator.ResultsFile)
			if err != nil {
				return err
			}

			var pool []orchestrator.Endpoint
			if cfg.Orchestrator.ProxyFile != "" {
				pool, err = orchestrator.LoadProxies(cfg.Orchestrator.ProxyFile)
				if err != nil {
					return err
				}
			}
			if len(pool) == 0 {
				log.Warn("No proxies configured, running with the local connection")
			}
			rotation := orchestrator.NewRotation(pool, cfg.Orchestrator.RotatingProxies)

			poller, err := mailbox.NewClient(cfg.MailboxConfig(), log)
			if err != nil {
				return err
			}

			runner, err := orchestrator.NewAccountRunner(
				cfg.SessionOptions(),
				cfg.InteractorOptions(),
				cfg.Motion.ToMotion(),
				cfg.WorkflowConfig(),
				poller,
				log,
			)
			if err != nil {
				return err
			}

			orch, err := orchestrator.New(
				runner,
				rotation,
				orchestrator.NewCompletionSet(completedEmails),
				orchestrator.NewResultLog(cfg.Orchestrator.ResultsFile),
				cfg.OrchestratorOptions(),
				log,
			)
			if err != nil {
				return err
			}

			log.Info("Run starting",
				zap.Int("accounts", len(batch)),
				zap.Int("already_completed", len(completedEmails)),
				zap.Int("proxies", len(pool)),
				zap.Int("parallel", cfg.Orchestrator.Parallel))

			summary := orch.Run(ctx, batch)

			log.Info("Run complete",
				zap.Int("succeeded", summary.Succeeded),
				zap.Int("failed", summary.Failed),
				zap.Int("skipped", summary.Skipped),
				zap.String("results_file", cfg.Orchestrator.ResultsFile))

			if err := ctx.Err(); err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d accounts failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	runCmd.Flags().String("accounts", "", "CSV file with the account batch")
	runCmd.Flags().String("proxies", "", "proxy list, one host:port[:user:pass] per line")
	runCmd.Flags().String("results", "", "CSV file successes are appended to")
	runCmd.Flags().Bool("headless", false, "run browsers without a visible window")
	return runCmd
}
