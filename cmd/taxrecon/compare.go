package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"taxrecon/internal/domain"
	"taxrecon/internal/export"
	"taxrecon/internal/reconcile"
)

type compareOutput struct {
	domain.ComparisonResult
	Counts      domain.ComparisonCounts `json:"counts"`
	NeedsReview bool                    `json:"needs_review"`
}

// Comparison needs no analysis provider, so this command does not build the
// service graph.
func newCompareCommand(_ *globalFlags) *cobra.Command {
	var (
		format string
		out    string
		name   string
	)
	cmd := &cobra.Command{
		Use:   "compare PRIMARY SECONDARY",
		Short: "Compare two field maps (JSON or YAML)",
		Args:  cobra.ExactArgs(2),
		Example: `  taxrecon compare primary.json secondary.yaml
  taxrecon compare a.json b.json --format xlsx --out report.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			primary, err := reconcile.LoadFieldMapFile(args[0])
			if err != nil {
				return err
			}
			secondary, err := reconcile.LoadFieldMapFile(args[1])
			if err != nil {
				return err
			}
			res := reconcile.Compare(primary, secondary)
			if name == "" {
				name = filepath.Base(args[0])
			}

			var buf bytes.Buffer
			switch strings.ToLower(format) {
			case "json", "":
				err = writeJSON(&buf, compareOutput{ComparisonResult: res, Counts: res.Counts(), NeedsReview: res.NeedsReview()})
			case export.FormatCSV:
				err = export.WriteCSV(&buf, &res)
			case export.FormatXLSX:
				err = export.WriteXLSX(&buf, name, &res)
			default:
				return fmt.Errorf("unknown format %q (want json, csv or xlsx)", format)
			}
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), out, buf.Bytes())
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json, csv or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "write output to this path instead of stdout")
	cmd.Flags().StringVar(&name, "name", "", "document name shown in exports")
	return cmd
}

func emit(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("bytes", len(data)).Msg("cli.compare: export written")
	return nil
}
