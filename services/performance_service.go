package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
	"github.com/TomerAmran/guess-the-performer-sub001/youtube"
)

type PerformanceService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPerformanceService(db *gorm.DB, log *logger.Logger) *PerformanceService {
	return &PerformanceService{db: db, log: log.Service("performance")}
}

type CreatePerformanceRequest struct {
	PieceID    uuid.UUID `json:"piece_id" binding:"required"`
	ArtistID   uuid.UUID `json:"artist_id" binding:"required"`
	YouTubeURL string    `json:"youtube_url" binding:"required"`
}

type UpdatePerformanceRequest struct {
	PieceID    *uuid.UUID `json:"piece_id"`
	ArtistID   *uuid.UUID `json:"artist_id"`
	YouTubeURL *string    `json:"youtube_url"`
}

func withPieceAndArtist(db *gorm.DB) *gorm.DB {
	return db.Preload("Piece").Preload("Piece.Composer").Preload("Artist")
}

func cleanYouTubeURL(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if _, err := youtube.ParseVideoID(v); err != nil {
		return "", apierr.BadRequest("%q is not a YouTube video URL", raw)
	}
	return v, nil
}

func (s *PerformanceService) GetAll(ctx context.Context) ([]models.Performance, error) {
	perfs := []models.Performance{}
	err := withPieceAndArtist(s.db.WithContext(ctx)).Order("created_at ASC").Find(&perfs).Error
	return perfs, err
}

func (s *PerformanceService) GetByID(ctx context.Context, id uuid.UUID) (*models.Performance, error) {
	var p models.Performance
	found, err := lookup(ctx, withPieceAndArtist(s.db), &p, id)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (s *PerformanceService) GetByPiece(ctx context.Context, pieceID uuid.UUID) ([]models.Performance, error) {
	perfs := []models.Performance{}
	err := s.db.WithContext(ctx).
		Preload("Artist").
		Where("piece_id = ?", pieceID).
		Order("created_at ASC").
		Find(&perfs).Error
	return perfs, err
}

func (s *PerformanceService) Create(ctx context.Context, req *CreatePerformanceRequest) (*models.Performance, error) {
	url, err := cleanYouTubeURL(req.YouTubeURL)
	if err != nil {
		return nil, err
	}
	if err := first(ctx, s.db, &models.Piece{}, "piece", req.PieceID); err != nil {
		return nil, err
	}
	if err := first(ctx, s.db, &models.Artist{}, "artist", req.ArtistID); err != nil {
		return nil, err
	}

	p := models.Performance{PieceID: req.PieceID, ArtistID: req.ArtistID, YouTubeURL: url}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create performance: %w", err)
	}
	s.log.Info("performance created", "performance_id", p.ID, "piece_id", p.PieceID, "artist_id", p.ArtistID)
	return s.GetByID(ctx, p.ID)
}

// Update edits a performance. Quiz slices copy the artist and URL of the
// performance they were built from: a new URL is written through to them,
// while changing the artist or piece is refused once a slice uses it.
func (s *PerformanceService) Update(ctx context.Context, id uuid.UUID, req *UpdatePerformanceRequest) (*models.Performance, error) {
	var p models.Performance
	if err := first(ctx, s.db, &p, "performance", id); err != nil {
		return nil, err
	}
	rekeyed := (req.PieceID != nil && *req.PieceID != p.PieceID) ||
		(req.ArtistID != nil && *req.ArtistID != p.ArtistID)
	if rekeyed {
		if err := ensureUnreferenced(ctx, s.db, "performance", id,
			reference{&models.QuizSlice{}, "performance_id", "quiz slices"},
		); err != nil {
			return nil, err
		}
	}
	if req.YouTubeURL != nil {
		url, err := cleanYouTubeURL(*req.YouTubeURL)
		if err != nil {
			return nil, err
		}
		p.YouTubeURL = url
	}
	if req.PieceID != nil {
		if err := first(ctx, s.db, &models.Piece{}, "piece", *req.PieceID); err != nil {
			return nil, err
		}
		p.PieceID = *req.PieceID
	}
	if req.ArtistID != nil {
		if err := first(ctx, s.db, &models.Artist{}, "artist", *req.ArtistID); err != nil {
			return nil, err
		}
		p.ArtistID = *req.ArtistID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Piece", "Artist").Save(&p).Error; err != nil {
			return fmt.Errorf("update performance: %w", err)
		}
		res := tx.Model(&models.QuizSlice{}).
			Where("performance_id = ? AND youtube_url <> ?", id, p.YouTubeURL).
			Update("youtube_url", p.YouTubeURL)
		if res.Error != nil {
			return fmt.Errorf("update quiz slices: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			s.log.Info("quiz slices follow performance url", "performance_id", id, "slices", res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *PerformanceService) Delete(ctx context.Context, id uuid.UUID) error {
	var p models.Performance
	if err := first(ctx, s.db, &p, "performance", id); err != nil {
		return err
	}
	if err := ensureUnreferenced(ctx, s.db, "performance", id,
		reference{&models.QuizSlice{}, "performance_id", "quiz slices"},
	); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Performance{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete performance: %w", err)
	}
	s.log.Info("performance deleted", "performance_id", id)
	return nil
}
