package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
)

type PieceService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPieceService(db *gorm.DB, log *logger.Logger) *PieceService {
	return &PieceService{db: db, log: log.Service("piece")}
}

type CreatePieceRequest struct {
	Name       string    `json:"name" binding:"required"`
	ComposerID uuid.UUID `json:"composer_id" binding:"required"`
}

type UpdatePieceRequest struct {
	Name       *string    `json:"name"`
	ComposerID *uuid.UUID `json:"composer_id"`
}

func (s *PieceService) GetAll(ctx context.Context) ([]models.Piece, error) {
	pieces := []models.Piece{}
	err := s.db.WithContext(ctx).Preload("Composer").Order("name ASC").Find(&pieces).Error
	return pieces, err
}

func (s *PieceService) GetByID(ctx context.Context, id uuid.UUID) (*models.Piece, error) {
	var p models.Piece
	found, err := lookup(ctx, s.db.Preload("Composer"), &p, id)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (s *PieceService) GetByComposer(ctx context.Context, composerID uuid.UUID) ([]models.Piece, error) {
	pieces := []models.Piece{}
	err := s.db.WithContext(ctx).
		Where("composer_id = ?", composerID).
		Order("name ASC").
		Find(&pieces).Error
	return pieces, err
}

func (s *PieceService) Create(ctx context.Context, req *CreatePieceRequest) (*models.Piece, error) {
	name, err := cleanName("piece", req.Name)
	if err != nil {
		return nil, err
	}
	if err := first(ctx, s.db, &models.Composer{}, "composer", req.ComposerID); err != nil {
		return nil, err
	}

	p := models.Piece{Name: name, ComposerID: req.ComposerID}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create piece: %w", err)
	}
	s.log.Info("piece created", "piece_id", p.ID, "name", p.Name)
	return s.GetByID(ctx, p.ID)
}

// Update edits a piece. Quizzes copy the composer and name of their piece,
// so neither may change while a quiz points at it.
func (s *PieceService) Update(ctx context.Context, id uuid.UUID, req *UpdatePieceRequest) (*models.Piece, error) {
	var p models.Piece
	if err := first(ctx, s.db, &p, "piece", id); err != nil {
		return nil, err
	}
	var name string
	if req.Name != nil {
		var err error
		if name, err = cleanName("piece", *req.Name); err != nil {
			return nil, err
		}
	}
	rekeyed := (req.Name != nil && name != p.Name) ||
		(req.ComposerID != nil && *req.ComposerID != p.ComposerID)
	if rekeyed {
		if err := ensureUnreferenced(ctx, s.db, "piece", id,
			reference{&models.Quiz{}, "piece_id", "quizzes"},
		); err != nil {
			return nil, err
		}
	}
	if req.Name != nil {
		p.Name = name
	}
	if req.ComposerID != nil {
		if err := first(ctx, s.db, &models.Composer{}, "composer", *req.ComposerID); err != nil {
			return nil, err
		}
		p.ComposerID = *req.ComposerID
	}
	if err := s.db.WithContext(ctx).Omit("Composer").Save(&p).Error; err != nil {
		return nil, fmt.Errorf("update piece: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *PieceService) Delete(ctx context.Context, id uuid.UUID) error {
	var p models.Piece
	if err := first(ctx, s.db, &p, "piece", id); err != nil {
		return err
	}
	if err := ensureUnreferenced(ctx, s.db, "piece", id,
		reference{&models.Performance{}, "piece_id", "performances"},
		reference{&models.Quiz{}, "piece_id", "quizzes"},
	); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Piece{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete piece: %w", err)
	}
	s.log.Info("piece deleted", "piece_id", id)
	return nil
}
