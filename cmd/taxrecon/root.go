package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"taxrecon/internal/app"
	"taxrecon/internal/config"
	"taxrecon/internal/logging"
)

type globalFlags struct {
	logLevel string
	cfg      *config.Config
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "taxrecon",
		Short:         "Analyze tax documents and reconcile extracted fields",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if g.logLevel != "" {
				cfg.Log.Level = g.logLevel
			}
			logging.Install(logging.New(cfg.Log))
			g.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override TAXRECON_LOG_LEVEL")

	root.AddCommand(
		newAnalyzeCommand(g),
		newBatchCommand(g),
		newReconcileCommand(g),
		newCompareCommand(g),
		newShowCommand(g),
	)
	return root
}

// withApp builds the service graph for one command and tears it down after.
func withApp(ctx context.Context, g *globalFlags, fn func(*app.App) error) error {
	a, err := app.Build(ctx, g.cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("cli.writeJSON: encoding output")
		return err
	}
	return nil
}
