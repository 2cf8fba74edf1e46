package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

func newReindexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the quiz search index from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.TypesenseHost == "" {
				return errors.New("typesense_host is not configured")
			}
			log, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			db, err := ctx.ensureDB()
			if err != nil {
				return err
			}
			index, err := services.NewTypesenseIndex(cmd.Context(), cfg.TypesenseHost, cfg.TypesenseAPIKey, log)
			if err != nil {
				return fmt.Errorf("search index: %w", err)
			}
			n, err := services.NewQuizService(db, index, nil, log).Reindex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d quizzes\n", n)
			return nil
		},
	}
}
