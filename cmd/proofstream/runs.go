package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/proofstream/proofstream/internal/storage/runlog"
)

func newRunsCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sessions from the run log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Storage.Path == "" {
				return fmt.Errorf("run log disabled: set storage.path (or PROOF_STORAGE__PATH)")
			}

			store, err := runlog.Open(a.cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded yet.")
				return nil
			}

			for _, run := range runs {
				ttfb := "n/a"
				if run.TTFBMillis != nil {
					ttfb = fmt.Sprintf("%.0fms", *run.TTFBMillis)
				}
				status := "ok"
				if run.Error != "" {
					status = "error: " + run.Error
				}
				fmt.Printf("%s  %s/%s  ttfb=%s ttc=%.0fms tok=%d+%d stalls=%d  %s\n",
					run.CreatedAt, run.Provider, run.Model,
					ttfb, run.TTCMillis,
					run.PromptTokens, run.CompletionTokens,
					run.StallCount, status)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}
