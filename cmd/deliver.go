package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var deliverCmd = &cobra.Command{
	Use:   "deliver",
	Short: "Run one notification delivery batch and exit (for cron-style schedulers)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		db, rdb, err := connect(cfg)
		if err != nil {
			return err
		}
		defer closeAll()

		svcs, err := buildServices(cfg, db, rdb)
		if err != nil {
			return err
		}

		result, err := svcs.delivery.RunBatch(ctx)
		if err != nil {
			return err
		}

		out, err := json.Marshal(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deliverCmd)
}
