package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

const demoEmail = "demo@guesstheperformer.local"

// newDemoPassword is random per run and printed once.
func newDemoPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}

type seedPiece struct {
	composer     string
	name         string
	performances map[string]string // artist name -> video id
}

var (
	seedComposers   = []string{"Frédéric Chopin", "Ludwig van Beethoven", "Johann Sebastian Bach", "Claude Debussy"}
	seedArtists     = []string{"Arthur Rubinstein", "Vladimir Horowitz", "Maurizio Pollini", "Martha Argerich", "Glenn Gould", "András Schiff"}
	seedInstruments = []string{"Piano", "Violin", "Cello"}

	seedPieces = []seedPiece{
		{
			composer: "Frédéric Chopin",
			name:     "Nocturne Op. 9 No. 2",
			performances: map[string]string{
				"Arthur Rubinstein": "YGRO05WcNDk",
				"Vladimir Horowitz": "9E6b3swbnWg",
				"Maurizio Pollini":  "tV5U8kVYS88",
			},
		},
		{
			composer: "Frédéric Chopin",
			name:     "Ballade No. 1 in G minor",
			performances: map[string]string{
				"Arthur Rubinstein": "Zj_psrTUW_w",
				"Vladimir Horowitz": "BvRLNxz6dUk",
				"Martha Argerich":   "Ce8p0VcTbuI",
			},
		},
		{
			composer: "Johann Sebastian Bach",
			name:     "Goldberg Variations, Aria",
			performances: map[string]string{
				"Glenn Gould":     "Ah392lnFHxM",
				"András Schiff":   "15ezpwCHtJs",
				"Martha Argerich": "p4yAB37wG5s",
			},
		},
		{
			composer: "Ludwig van Beethoven",
			name:     "Piano Sonata No. 14 \"Moonlight\"",
			performances: map[string]string{
				"Vladimir Horowitz": "4Tr0otuiQuU",
				"Maurizio Pollini":  "sbTVZMJ9Z2I",
				"András Schiff":     "XEq9xX4ZiOc",
			},
		},
	}
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo catalog data, a demo user and sample quizzes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return errors.New("seed refuses to run in production")
			}
			log, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			db, err := ctx.ensureDB()
			if err != nil {
				return err
			}
			if err := models.AutoMigrate(db); err != nil {
				return err
			}
			if reset {
				if err := clearTables(db.WithContext(cmd.Context())); err != nil {
					return err
				}
				log.Info("existing data cleared")
			}
			password := newDemoPassword()
			n, err := seed(cmd.Context(), db, log, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d quizzes; demo login %s / %s\n", n, demoEmail, password)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Delete all existing rows first")
	return cmd
}

// clearTables deletes children before parents.
func clearTables(db *gorm.DB) error {
	all := models.All()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	return nil
}

func seed(ctx context.Context, db *gorm.DB, log *logger.Logger, demoPassword string) (int, error) {
	composerService := services.NewComposerService(db, log)
	artistService := services.NewArtistService(db, log)
	instrumentService := services.NewInstrumentService(db, log)
	pieceService := services.NewPieceService(db, log)
	performanceService := services.NewPerformanceService(db, log)
	authService := services.NewAuthService(db, "seed", "", "", log)
	quizService := services.NewQuizService(db, nil, nil, log)

	composers := map[string]uuid.UUID{}
	for _, name := range seedComposers {
		c, err := composerService.Create(ctx, &services.CreateComposerRequest{Name: name})
		if err != nil {
			return 0, fmt.Errorf("seed composer %q: %w", name, err)
		}
		composers[name] = c.ID
	}

	artists := map[string]uuid.UUID{}
	for _, name := range seedArtists {
		a, err := artistService.Create(ctx, &services.CreateArtistRequest{Name: name})
		if err != nil {
			return 0, fmt.Errorf("seed artist %q: %w", name, err)
		}
		artists[name] = a.ID
	}

	var piano uuid.UUID
	for _, name := range seedInstruments {
		inst, err := instrumentService.Create(ctx, &services.CreateInstrumentRequest{Name: name})
		if err != nil {
			return 0, fmt.Errorf("seed instrument %q: %w", name, err)
		}
		if name == "Piano" {
			piano = inst.ID
		}
	}

	demo, err := authService.Register(ctx, &services.RegisterRequest{
		Name:     "Demo User",
		Email:    demoEmail,
		Password: demoPassword,
	})
	if err != nil {
		return 0, fmt.Errorf("seed demo user: %w", err)
	}

	quizzes := 0
	for _, sp := range seedPieces {
		piece, err := pieceService.Create(ctx, &services.CreatePieceRequest{Name: sp.name, ComposerID: composers[sp.composer]})
		if err != nil {
			return 0, fmt.Errorf("seed piece %q: %w", sp.name, err)
		}

		slices := make([]services.SliceRequest, 0, models.SlicesPerQuiz)
		for artist, videoID := range sp.performances {
			perf, err := performanceService.Create(ctx, &services.CreatePerformanceRequest{
				PieceID:    piece.ID,
				ArtistID:   artists[artist],
				YouTubeURL: "https://www.youtube.com/watch?v=" + videoID,
			})
			if err != nil {
				return 0, fmt.Errorf("seed performance %q/%q: %w", sp.name, artist, err)
			}
			id := perf.ID
			slices = append(slices, services.SliceRequest{PerformanceID: &id, StartTime: 30})
		}

		pieceID := piece.ID
		if _, err := quizService.CreateQuiz(ctx, demo.User.ID, &services.QuizRequest{
			PieceID:      &pieceID,
			InstrumentID: piano,
			Duration:     20,
			Slices:       slices,
		}); err != nil {
			return 0, fmt.Errorf("seed quiz %q: %w", sp.name, err)
		}
		quizzes++
	}

	log.Info("seed complete", "quizzes", quizzes)
	return quizzes, nil
}
