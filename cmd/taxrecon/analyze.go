package main

import (
	"github.com/spf13/cobra"

	"taxrecon/internal/app"
	"taxrecon/internal/domain"
	"taxrecon/internal/reconcile"
)

func newAnalyzeCommand(g *globalFlags) *cobra.Command {
	var instructions string
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze a single document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readDocument(args[0], instructions, g.cfg.Server.MaxUploadBytes())
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), g, func(a *app.App) error {
				res, err := a.Service.Analyze(cmd.Context(), req)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&instructions, "instructions", "", "custom analysis instructions")
	return cmd
}

type batchOutput struct {
	Results  []domain.StructuredResult `json:"results"`
	Insights *domain.BatchInsights     `json:"insights,omitempty"`
}

func newBatchCommand(g *globalFlags) *cobra.Command {
	var withInsights bool
	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Analyze several documents concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs := make([]domain.AnalysisRequest, 0, len(args))
			for _, path := range args {
				req, err := readDocument(path, "", g.cfg.Server.MaxUploadBytes())
				if err != nil {
					return err
				}
				reqs = append(reqs, req)
			}
			return withApp(cmd.Context(), g, func(a *app.App) error {
				results, err := a.Service.AnalyzeBatch(cmd.Context(), reqs)
				if err != nil {
					return err
				}
				out := batchOutput{Results: results}
				if withInsights {
					in := a.Service.Insights(results)
					out.Insights = &in
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().BoolVar(&withInsights, "insights", true, "include batch insights")
	return cmd
}

func newReconcileCommand(g *globalFlags) *cobra.Command {
	var secondaryPath string
	cmd := &cobra.Command{
		Use:   "reconcile FILE",
		Short: "Analyze a document and compare its fields with a secondary source",
		Long: `Analyze a document and compare its extracted fields with a secondary field map.

With --secondary the map is read from a JSON or YAML file. Without it the
configured secondary extraction provider reads the same document.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readDocument(args[0], "", g.cfg.Server.MaxUploadBytes())
			if err != nil {
				return err
			}
			var secondary map[string]string
			if secondaryPath != "" {
				if secondary, err = reconcile.LoadFieldMapFile(secondaryPath); err != nil {
					return err
				}
			}
			return withApp(cmd.Context(), g, func(a *app.App) error {
				rec, err := a.Service.Reconcile(cmd.Context(), req, secondary)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
	cmd.Flags().StringVar(&secondaryPath, "secondary", "", "JSON or YAML field map to compare against")
	return cmd
}
