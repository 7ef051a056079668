// Package cmd wires the command-line surface: configuration layering,
// logger bootstrap and the run/generate subcommands.
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/voidmaw/regflow/internal/config"
	"github.com/voidmaw/regflow/internal/observability"
)

var cfgFile string

// NewRootCommand builds a fresh command tree. A new instance per invocation
// keeps flag state from leaking between runs in tests.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "regflow",
		Short:   "regflow drives multi-stage signup workflows with humanlike pacing",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(); err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{
					Level: "info", Format: "console", ServiceName: "regflow",
				})
				return err
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Info("Starting regflow", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newGenerateCmd())
	return rootCmd
}

// Execute runs the CLI with a signal-aware context.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		observability.GetLogger().Error("Command failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// initializeConfig points viper at the config file and the REGFLOW_
// environment namespace.
func initializeConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REGFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config file: %w", err)
		}
		// No config file: defaults plus environment.
	}
	return nil
}

func loadConfig() (config.Config, error) {
	return config.Load(viper.GetViper())
}
