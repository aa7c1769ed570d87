package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"filer/internal/platform/config"
	"filer/internal/platform/logger"
	id "filer/pkg/domain"
)

func reprocessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess [filing-id...]",
		Short: "Dispatch filings directly, bypassing the queue",
		Long: `Dispatch one or more PAID filings in this process. Filings in any other
status are skipped, so a reprocess is safe to repeat.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]id.FilingID, 0, len(args))
			for _, a := range args {
				fid, err := id.ParseFilingID(a)
				if err != nil {
					return fmt.Errorf("%q: %w", a, err)
				}
				ids = append(ids, fid)
			}

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

			var failed int
			for _, fid := range ids {
				outcome, err := deps.Dispatcher.ProcessFiling(ctx, fid)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%v\n", fid, outcome, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", fid, outcome)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d filings need another attempt", failed, len(ids))
			}
			return nil
		},
	}
}
