package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/proofstream/proofstream/internal/classify"
	"github.com/proofstream/proofstream/internal/receipt"
	"github.com/proofstream/proofstream/internal/storage/runlog"
	"github.com/proofstream/proofstream/internal/stream"
)

func newStreamCommand(a *app) *cobra.Command {
	var (
		providerName string
		model        string
		prompt       string
		maxTokens    int
		temperature  float64
		topP         float64
		saveReceipt  bool
		quiet        bool
		runClassify  bool
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream a chat completion, printing tokens live and reporting latency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := a.providerByName(providerName)
			if err != nil {
				return err
			}
			if model == "" {
				model = settings.Models[0]
			}
			if prompt == "" {
				prompt = a.cfg.Request.Prompt
			}

			req := stream.ChatRequest{
				Model:       model,
				Messages:    []stream.Message{{Role: "user", Content: prompt}},
				Temperature: a.cfg.Request.Temperature,
				MaxTokens:   a.cfg.Request.MaxTokens,
				TopP:        a.cfg.Request.TopP,
			}
			// Flags beat config; unset flags leave the parameter out of the
			// request entirely.
			if cmd.Flags().Changed("temperature") {
				req.Temperature = &temperature
			}
			if cmd.Flags().Changed("max-tokens") {
				req.MaxTokens = &maxTokens
			}
			if cmd.Flags().Changed("top-p") {
				req.TopP = &topP
			}

			opts := []stream.Option{
				stream.WithStallThreshold(stallThreshold(a)),
			}
			if !quiet && a.cfg.Request.Verbose {
				opts = append(opts, stream.WithContentWriter(os.Stdout))
			}

			fmt.Printf("[%s / %s]\n", settings.Name, model)
			fmt.Printf("[Prompt] %s\n\n", truncate(prompt, 80))

			client := stream.NewClient(settings.Endpoint, settings.APIKey, opts...)
			sess := client.Consume(cmd.Context(), req)
			fmt.Println()

			if sess.Error != "" {
				fmt.Printf("\n[error] %s\n", sess.Error)
			} else if len(sess.RawFrames) == 0 {
				fmt.Println("\n[empty stream: no frames received]")
			}

			if saveReceipt || a.cfg.Receipts.Save {
				saveSessionReceipt(a, model, req, sess)
			}

			printSessionSummary(sess)

			if runClassify && sess.Text != "" {
				decision := classify.Detect(sess.Text)
				fmt.Printf("\n[classification] %s (confidence %.2f)\n", decision.State, decision.Confidence)
				if decision.Refused() {
					entry := classify.NewReviewEntry(model, prompt, sess.Text, decision)
					if err := classify.AppendReview(a.cfg.Review.Queue, entry); err != nil {
						a.logger.Error("failed to queue for review", slog.String("error", err.Error()))
					} else {
						fmt.Printf("[review] routed to %s\n", a.cfg.Review.Queue)
					}
				}
			}

			recordRun(a, cmd, settings.Name, model, sess)
			return nil
		},
	}

	cmd.Flags().StringVar(&providerName, "provider", "ambient", "provider to stream from")
	cmd.Flags().StringVar(&model, "model", "", "model id (default: provider's first model)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt text (default: configured prompt)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "max output tokens (unset: not sent)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "sampling temperature (unset: not sent)")
	cmd.Flags().Float64Var(&topP, "top-p", 0, "nucleus sampling parameter (unset: not sent)")
	cmd.Flags().BoolVar(&saveReceipt, "save-receipt", false, "write a receipt for this session")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress live token output")
	cmd.Flags().BoolVar(&runClassify, "classify", false, "classify the answer for refusals")
	return cmd
}

func stallThreshold(a *app) time.Duration {
	return time.Duration(a.cfg.Bench.StallThresholdMS * float64(time.Millisecond))
}

// saveSessionReceipt writes the receipt unless the session is empty; a
// zero-frame receipt proves nothing and is refused upstream.
func saveSessionReceipt(a *app, model string, req stream.ChatRequest, sess *stream.Session) {
	if len(sess.RawFrames) == 0 {
		a.logger.Warn("skipping receipt: no frames received")
		return
	}
	path, err := receipt.Write(a.cfg.Receipts.Dir, model, req, sess.RawFrames)
	if err != nil {
		a.logger.Error("failed to write receipt", slog.String("error", err.Error()))
		return
	}
	sess.ReceiptPath = path
	fmt.Printf("\n[receipt] %s\n", path)
}

func printSessionSummary(sess *stream.Session) {
	ttfb := "n/a"
	if sess.TTFB != nil {
		ttfb = fmt.Sprintf("%.0fms", float64(sess.TTFB.Microseconds())/1000)
	}
	fmt.Printf("\n[ttfb=%s  ttc=%.0fms  tokens=%d+%d  stalls=%d  parse_errors=%d]\n",
		ttfb,
		float64(sess.TTC.Microseconds())/1000,
		sess.PromptTokens, sess.CompletionTokens,
		sess.StallCount, sess.ParseErrors,
	)
}

// recordRun appends the session to the SQLite run log when configured.
func recordRun(a *app, cmd *cobra.Command, providerName, model string, sess *stream.Session) {
	if a.cfg.Storage.Path == "" {
		return
	}
	store, err := runlog.Open(a.cfg.Storage.Path)
	if err != nil {
		a.logger.Error("failed to open run log", slog.String("error", err.Error()))
		return
	}
	defer store.Close()

	run := runlog.NewRun(uuid.New().String(), providerName, model, sess)
	if err := store.Insert(cmd.Context(), run); err != nil {
		a.logger.Error("failed to record run", slog.String("error", err.Error()))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
