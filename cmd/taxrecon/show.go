package main

import (
	"errors"

	"github.com/spf13/cobra"

	"taxrecon/internal/app"
)

func newShowCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show KEY",
		Short: "Print an archived analysis result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !g.cfg.S3.ArchiveEnabled {
				return errors.New("result archive is disabled (set TAXRECON_S3_ARCHIVE_ENABLED=true)")
			}
			archive, _, err := app.NewArchive(cmd.Context(), &g.cfg.S3)
			if err != nil {
				return err
			}
			res, err := archive.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}
