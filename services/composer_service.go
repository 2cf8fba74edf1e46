package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
)

type ComposerService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewComposerService(db *gorm.DB, log *logger.Logger) *ComposerService {
	return &ComposerService{db: db, log: log.Service("composer")}
}

type CreateComposerRequest struct {
	Name     string  `json:"name" binding:"required"`
	PhotoURL *string `json:"photo_url"`
}

type UpdateComposerRequest struct {
	Name     *string `json:"name"`
	PhotoURL *string `json:"photo_url"`
}

func (s *ComposerService) GetAll(ctx context.Context) ([]models.Composer, error) {
	composers := []models.Composer{}
	err := s.db.WithContext(ctx).Order("name ASC").Find(&composers).Error
	return composers, err
}

// GetByID returns nil without error when the composer does not exist.
func (s *ComposerService) GetByID(ctx context.Context, id uuid.UUID) (*models.Composer, error) {
	var c models.Composer
	found, err := lookup(ctx, s.db, &c, id)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (s *ComposerService) Create(ctx context.Context, req *CreateComposerRequest) (*models.Composer, error) {
	name, err := cleanName("composer", req.Name)
	if err != nil {
		return nil, err
	}
	photo, err := cleanPhotoURL(req.PhotoURL)
	if err != nil {
		return nil, err
	}
	if err := ensureNameFree(ctx, s.db, &models.Composer{}, "composer", name, uuid.Nil); err != nil {
		return nil, err
	}

	c := models.Composer{Name: name, PhotoURL: photo}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("create composer: %w", err)
	}
	s.log.Info("composer created", "composer_id", c.ID, "name", c.Name)
	return &c, nil
}

func (s *ComposerService) Update(ctx context.Context, id uuid.UUID, req *UpdateComposerRequest) (*models.Composer, error) {
	var c models.Composer
	if err := first(ctx, s.db, &c, "composer", id); err != nil {
		return nil, err
	}
	if req.Name != nil {
		name, err := cleanName("composer", *req.Name)
		if err != nil {
			return nil, err
		}
		if err := ensureNameFree(ctx, s.db, &models.Composer{}, "composer", name, id); err != nil {
			return nil, err
		}
		c.Name = name
	}
	if req.PhotoURL != nil {
		photo, err := cleanPhotoURL(req.PhotoURL)
		if err != nil {
			return nil, err
		}
		c.PhotoURL = photo
	}
	if err := s.db.WithContext(ctx).Save(&c).Error; err != nil {
		return nil, fmt.Errorf("update composer: %w", err)
	}
	return &c, nil
}

func (s *ComposerService) Delete(ctx context.Context, id uuid.UUID) error {
	var c models.Composer
	if err := first(ctx, s.db, &c, "composer", id); err != nil {
		return err
	}
	if err := ensureUnreferenced(ctx, s.db, "composer", id,
		reference{&models.Piece{}, "composer_id", "pieces"},
		reference{&models.Quiz{}, "composer_id", "quizzes"},
	); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Composer{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete composer: %w", err)
	}
	s.log.Info("composer deleted", "composer_id", id)
	return nil
}
