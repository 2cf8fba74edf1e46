// Package testutil builds throwaway databases and fixtures for package
// tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewNop()
}

// DB opens a private in-memory SQLite database with every model migrated.
// It is closed when the test ends.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("test db handle: %v", err)
	}
	// One connection keeps the in-memory database alive and serialises
	// writers.
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return db
}

func SeedUser(tb testing.TB, ctx context.Context, db *gorm.DB, email string) *models.User {
	tb.Helper()
	u := &models.User{Name: email, Email: email}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedComposer(tb testing.TB, ctx context.Context, db *gorm.DB, name string) *models.Composer {
	tb.Helper()
	c := &models.Composer{Name: name}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed composer: %v", err)
	}
	return c
}

func SeedArtist(tb testing.TB, ctx context.Context, db *gorm.DB, name string) *models.Artist {
	tb.Helper()
	a := &models.Artist{Name: name}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed artist: %v", err)
	}
	return a
}

func SeedInstrument(tb testing.TB, ctx context.Context, db *gorm.DB, name string) *models.Instrument {
	tb.Helper()
	i := &models.Instrument{Name: name}
	if err := db.WithContext(ctx).Create(i).Error; err != nil {
		tb.Fatalf("seed instrument: %v", err)
	}
	return i
}

func SeedPiece(tb testing.TB, ctx context.Context, db *gorm.DB, composerID uuid.UUID, name string) *models.Piece {
	tb.Helper()
	p := &models.Piece{Name: name, ComposerID: composerID}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed piece: %v", err)
	}
	return p
}

func SeedPerformance(tb testing.TB, ctx context.Context, db *gorm.DB, pieceID, artistID uuid.UUID, url string) *models.Performance {
	tb.Helper()
	p := &models.Performance{PieceID: pieceID, ArtistID: artistID, YouTubeURL: url}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed performance: %v", err)
	}
	return p
}

// Catalog is a composer, an instrument and three artists, enough for one
// quiz.
type Catalog struct {
	Composer   *models.Composer
	Instrument *models.Instrument
	Artists    []*models.Artist
}

func SeedCatalog(tb testing.TB, ctx context.Context, db *gorm.DB) *Catalog {
	tb.Helper()
	return &Catalog{
		Composer:   SeedComposer(tb, ctx, db, "Frédéric Chopin"),
		Instrument: SeedInstrument(tb, ctx, db, "Piano"),
		Artists: []*models.Artist{
			SeedArtist(tb, ctx, db, "Arthur Rubinstein"),
			SeedArtist(tb, ctx, db, "Vladimir Horowitz"),
			SeedArtist(tb, ctx, db, "Maurizio Pollini"),
		},
	}
}

// SeedQuiz writes a quiz with one slice per catalog artist, bypassing the
// service layer.
func SeedQuiz(tb testing.TB, ctx context.Context, db *gorm.DB, cat *Catalog, creatorID uuid.UUID, pieceName string, likes int) *models.Quiz {
	tb.Helper()
	q := &models.Quiz{
		ComposerID:   cat.Composer.ID,
		PieceName:    pieceName,
		InstrumentID: cat.Instrument.ID,
		Duration:     30,
		LikeCount:    likes,
		CreatorID:    creatorID,
	}
	if err := db.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed quiz: %v", err)
	}
	videos := []string{"dQw4w9WgXcQ", "9E6b3swbnWg", "YGRO05WcNDk"}
	for i, a := range cat.Artists {
		sl := models.QuizSlice{
			QuizID:     q.ID,
			Position:   i,
			ArtistID:   a.ID,
			YouTubeURL: "https://www.youtube.com/watch?v=" + videos[i%len(videos)],
			StartTime:  10 * i,
		}
		if err := db.WithContext(ctx).Create(&sl).Error; err != nil {
			tb.Fatalf("seed quiz slice: %v", err)
		}
		q.Slices = append(q.Slices, sl)
	}
	return q
}
