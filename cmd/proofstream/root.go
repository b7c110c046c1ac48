package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/proofstream/proofstream/internal/config"
	"github.com/proofstream/proofstream/internal/provider"
	"github.com/proofstream/proofstream/internal/telemetry"
)

// app carries the loaded configuration and logger across subcommands.
type app struct {
	logger         *slog.Logger
	cfg            *config.Config
	shutdownTracer func(context.Context) error
}

func newRootCommand(logger *slog.Logger) *cobra.Command {
	a := &app{logger: logger}

	var (
		cfgPath     string
		enableTrace bool
	)

	cmd := &cobra.Command{
		Use:           "proofstream",
		Short:         "Streaming inference client with tamper-evident receipts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			if enableTrace {
				shutdown, err := telemetry.InitTracer("proofstream", a.logger)
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}
				a.shutdownTracer = shutdown
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a.shutdownTracer != nil {
				if err := a.shutdownTracer(cmd.Context()); err != nil {
					a.logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
				}
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file (optional)")
	cmd.PersistentFlags().BoolVar(&enableTrace, "trace", false, "emit OpenTelemetry spans to stdout")

	cmd.AddCommand(
		newStreamCommand(a),
		newVerifyCommand(a),
		newBenchCommand(a),
		newServeCommand(a),
		newRunsCommand(a),
	)
	return cmd
}

// providers returns all configured providers in fixed order.
func (a *app) providers() []provider.Settings {
	return []provider.Settings{
		provider.FromConfig("ambient", a.cfg.Ambient),
		provider.FromConfig("openai", a.cfg.OpenAI),
	}
}

// providerByName resolves one provider and validates it.
func (a *app) providerByName(name string) (provider.Settings, error) {
	for _, p := range a.providers() {
		if p.Name == name {
			if !p.Enabled {
				return provider.Settings{}, fmt.Errorf("provider %s is disabled", name)
			}
			if err := p.Validate(); err != nil {
				return provider.Settings{}, err
			}
			return p, nil
		}
	}
	return provider.Settings{}, fmt.Errorf("unknown provider %q", name)
}
