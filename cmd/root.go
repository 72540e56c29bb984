package cmd

import (
	"dinq_match/config"
	"dinq_match/utils"

	"github.com/spf13/cobra"
)

const app = "dinq_match"

var (
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "dinq_match generates matches and delivers notification events",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg = config.Load()

			// 命令行参数优先于环境变量
			if cmd.Flags().Changed("debug") {
				cfg.LogDebug, _ = cmd.Flags().GetBool("debug")
			}
			if cmd.Flags().Changed("json") {
				cfg.LogJSON, _ = cmd.Flags().GetBool("json")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return utils.InitLogger(cfg.LogJSON, cfg.LogDebug)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			utils.SyncLogger()
		},
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
}
