package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/TomerAmran/guess-the-performer-sub001/models"
	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

func newQuizzesCommand(ctx *commandContext) *cobra.Command {
	var (
		pieceName  string
		composerID string
		orderBy    string
		query      string
		plain      bool
	)

	cmd := &cobra.Command{
		Use:   "quizzes",
		Short: "List quizzes from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			db, err := ctx.ensureDB()
			if err != nil {
				return err
			}

			req := &services.SearchQuizzesRequest{
				PieceName: pieceName,
				Query:     query,
				OrderBy:   orderBy,
			}
			if composerID != "" {
				id, err := uuid.Parse(composerID)
				if err != nil {
					return fmt.Errorf("invalid --composer-id: %w", err)
				}
				req.ComposerID = &id
			}

			quizService := services.NewQuizService(db, newQuizIndex(cmd.Context(), cfg, log), nil, log)
			quizzes, err := quizService.SearchQuizzes(cmd.Context(), req)
			if err != nil {
				return err
			}
			if len(quizzes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No quizzes found")
				return nil
			}

			headers := []string{"ID", "Piece", "Composer", "Instrument", "Artists", "Likes", "Created"}
			rows := make([][]string, 0, len(quizzes))
			for i := range quizzes {
				rows = append(rows, quizRow(&quizzes[i]))
			}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns, !plain && stdoutIsTerminal()))
			return nil
		},
	}

	cmd.Flags().StringVar(&pieceName, "piece", "", "Filter by piece name substring")
	cmd.Flags().StringVar(&composerID, "composer-id", "", "Filter by composer ID")
	cmd.Flags().StringVar(&orderBy, "order", services.OrderRecent, "Sort order: recent or likes")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Free-text search (requires the search index)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Always print CSV")
	return cmd
}

func quizRow(q *models.Quiz) []string {
	var composer, instrument string
	if q.Composer != nil {
		composer = q.Composer.Name
	}
	if q.Instrument != nil {
		instrument = q.Instrument.Name
	}
	artists := make([]string, 0, len(q.Slices))
	for _, s := range q.Slices {
		if s.Artist != nil {
			artists = append(artists, s.Artist.Name)
		}
	}
	return []string{
		q.ID.String(),
		q.PieceName,
		composer,
		instrument,
		strings.Join(artists, ", "),
		strconv.Itoa(q.LikeCount),
		q.CreatedAt.Format("2006-01-02 15:04"),
	}
}
