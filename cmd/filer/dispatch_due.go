package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"filer/internal/platform/config"
	"filer/internal/platform/logger"
	"filer/internal/queue"
)

func dispatchDueCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dispatch-due",
		Short: "Enqueue PAID filings whose effective date has passed",
		Long: `Publish a filing message for every PAID filing that is now effective.
Filings that arrive before their effective date are left PAID by the
dispatcher; run this on a schedule to release them once they are due.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel)
			ctx := cmd.Context()
			deps, err := newDeps(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			n, err := queue.EnqueueDue(ctx, deps.Dispatcher, deps.Producer, cfg.Kafka.FilerTopic, limit)
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %d filings\n", n)
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 500, "maximum number of filings to enqueue")
	return cmd
}
