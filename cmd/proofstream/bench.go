package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/proofstream/proofstream/internal/bench"
	"github.com/proofstream/proofstream/internal/stream"
	"github.com/proofstream/proofstream/internal/tokens"
)

func newBenchCommand(a *app) *cobra.Command {
	var (
		runs   int
		warmup int
		prompt string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark latency and cost across enabled providers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("runs") {
				runs = a.cfg.Bench.Runs
			}
			if !cmd.Flags().Changed("warmup") {
				warmup = a.cfg.Bench.Warmup
			}
			if prompt == "" {
				prompt = a.cfg.Request.Prompt
			}

			recorder, err := bench.NewRecorder(a.cfg.Bench.Output)
			if err != nil {
				return err
			}
			defer recorder.Close()

			estimator := tokens.NewEstimator()
			var allStats []*bench.Stats

			for _, settings := range a.providers() {
				if !settings.Enabled {
					continue
				}
				if err := settings.Validate(); err != nil {
					fmt.Printf("Skipping %s: %v\n", settings.Name, err)
					continue
				}

				model := settings.Models[0]
				stats := bench.NewStats(settings.Name, model)
				allStats = append(allStats, stats)

				specs := bench.Plan(warmup, runs)
				fmt.Printf("\n[%s / %s]  %d run(s)  (warmup=%d)\n", settings.Name, model, len(specs), warmup)

				client := stream.NewClient(settings.Endpoint, settings.APIKey,
					stream.WithStallThreshold(stallThreshold(a)))

				req := stream.ChatRequest{
					Model:       model,
					Messages:    []stream.Message{{Role: "user", Content: prompt}},
					Temperature: a.cfg.Request.Temperature,
					MaxTokens:   a.cfg.Request.MaxTokens,
					TopP:        a.cfg.Request.TopP,
				}

				for _, spec := range specs {
					fmt.Printf("  %s ... ", spec.Label)
					sess := client.Consume(cmd.Context(), req)

					if sess.Error != "" {
						fmt.Printf("ERROR: %s\n", sess.Error)
					} else {
						// Some providers stream without usage accounting;
						// estimate locally so cost math still works.
						if sess.CompletionTokens == 0 && sess.Text != "" {
							sess.CompletionTokens = estimator.Count(model, sess.Text)
							a.logger.Debug("estimated completion tokens",
								slog.String("model", model),
								slog.Int("tokens", sess.CompletionTokens))
						}
						printRunLine(sess)
					}

					if err := recorder.Write(bench.NewRecord(settings.Name, model, settings.Endpoint, spec, sess)); err != nil {
						a.logger.Error("failed to record bench run", slog.String("error", err.Error()))
					}
					if !spec.Warmup {
						stats.Add(sess)
						recordRun(a, cmd, settings.Name, model, sess)
					}
				}
			}

			if len(allStats) == 0 {
				fmt.Println("\nNo results to display.")
				return nil
			}

			printBenchSummary(a, prompt, runs, allStats)
			return nil
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 0, "timed runs per provider (default: configured)")
	cmd.Flags().IntVar(&warmup, "warmup", 0, "warmup runs discarded (default: configured)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt text (default: configured prompt)")
	return cmd
}

func printRunLine(sess *stream.Session) {
	ttfb := "n/a"
	if sess.TTFB != nil {
		ttfb = fmt.Sprintf("%.0fms", float64(sess.TTFB.Microseconds())/1000)
	}
	fmt.Printf("ttfb=%s  ttc=%.0fms  tok=%d+%d\n",
		ttfb, float64(sess.TTC.Microseconds())/1000,
		sess.PromptTokens, sess.CompletionTokens)
}

func printBenchSummary(a *app, prompt string, runs int, allStats []*bench.Stats) {
	rule := strings.Repeat("─", 64)
	fmt.Printf("\n\n%s\n  BENCHMARK RESULTS\n%s\n", rule, rule)
	fmt.Printf("  Prompt : %s\n", truncate(prompt, 80))
	fmt.Printf("  Runs   : %d\n\n", runs)

	fmtMS := func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.0f ms", *v)
	}
	fmtTok := func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.1f", *v)
	}

	rows := [][]string{{"Metric"}}
	for range allStats {
		rows[0] = append(rows[0], "")
	}
	for i, s := range allStats {
		rows[0][i+1] = fmt.Sprintf("%s / %s", s.Provider, s.Model)
	}

	metricRows := []struct {
		label string
		value func(*bench.Stats) string
	}{
		{"Avg TTFB", func(s *bench.Stats) string { return fmtMS(s.MeanTTFB()) }},
		{"Avg TTC (total)", func(s *bench.Stats) string { return fmtMS(s.MeanTTC()) }},
		{"Prompt tokens (avg)", func(s *bench.Stats) string { return fmtTok(s.MeanPromptTokens()) }},
		{"Completion tokens", func(s *bench.Stats) string { return fmtTok(s.MeanCompletionTokens()) }},
		{"Est. cost / call", func(s *bench.Stats) string {
			rate := bench.LookupRate(a.cfg.Rates, s.Model)
			cost := s.MeanCost(rate)
			if cost == nil || (rate.Input == 0 && rate.Output == 0) {
				return "n/a"
			}
			return fmt.Sprintf("$%.7f", *cost)
		}},
		{"Stalls", func(s *bench.Stats) string { return fmt.Sprintf("%d", s.Stalls) }},
		{"Errors", func(s *bench.Stats) string { return fmt.Sprintf("%d / %d", s.Errors, s.Runs) }},
	}

	for _, m := range metricRows {
		row := []string{m.label}
		for _, s := range allStats {
			row = append(row, m.value(s))
		}
		rows = append(rows, row)
	}

	printTable(rows)

	for _, s := range allStats {
		rate := bench.LookupRate(a.cfg.Rates, s.Model)
		if rate.Input == 0 && rate.Output == 0 {
			fmt.Printf("  Note: no rate data for %s/%s; add it under rates: in the config file\n",
				s.Provider, s.Model)
		}
	}
}

// printTable renders rows with the first row as header, sizing each column
// to its widest cell.
func printTable(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := len([]rune(cell)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for r, row := range rows {
		line := " "
		for i, cell := range row {
			line += fmt.Sprintf(" %-*s ", widths[i], cell)
		}
		fmt.Println(line)
		if r == 0 {
			sep := " "
			for _, w := range widths {
				sep += " " + strings.Repeat("─", w) + " "
			}
			fmt.Println(sep)
		}
	}
}
