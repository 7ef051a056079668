package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/voidmaw/regflow/internal/accounts"
	"github.com/voidmaw/regflow/internal/observability"
)

// newGenerateCmd creates the `generate` command, which mints a fresh batch
// of identities ready for `run`.
func newGenerateCmd() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate <count>",
		Short: "Generate a batch of account identities",
		Long: `Generate mints plausible identities: faker-backed names, catch-all
emails under the configured domain and policy-compliant random passwords.
The batch is written in the CSV format the run command reads.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("generator.domain", cmd.Flags().Lookup("domain")); err != nil {
				return err
			}
			return viper.BindPFlag("orchestrator.accounts_file", cmd.Flags().Lookup("out"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			count, err := strconv.Atoi(args[0])
			if err != nil || count < 1 {
				return fmt.Errorf("count must be a positive integer, got %q", args[0])
			}

			gen, err := accounts.NewGenerator(accounts.GeneratorConfig{
				Domain:               cfg.Generator.Domain,
				UsernameSuffixDigits: cfg.Generator.UsernameSuffixDigits,
			}, 0)
			if err != nil {
				return err
			}

			batch, err := gen.Generate(count)
			if err != nil {
				return err
			}
			if err := accounts.SaveAccounts(cfg.Orchestrator.AccountsFile, batch); err != nil {
				return err
			}

			logger.Info("Batch generated",
				zap.Int("count", count),
				zap.String("domain", cfg.Generator.Domain),
				zap.String("file", cfg.Orchestrator.AccountsFile))
			return nil
		},
	}

	generateCmd.Flags().String("domain", "", "catch-all mail domain for generated addresses")
	generateCmd.Flags().String("out", "", "output CSV file (defaults to the run accounts file)")
	return generateCmd
}
