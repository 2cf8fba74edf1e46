package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
)

type ArtistService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtistService(db *gorm.DB, log *logger.Logger) *ArtistService {
	return &ArtistService{db: db, log: log.Service("artist")}
}

type CreateArtistRequest struct {
	Name     string  `json:"name" binding:"required"`
	PhotoURL *string `json:"photo_url"`
}

type UpdateArtistRequest struct {
	Name     *string `json:"name"`
	PhotoURL *string `json:"photo_url"`
}

func (s *ArtistService) GetAll(ctx context.Context) ([]models.Artist, error) {
	artists := []models.Artist{}
	err := s.db.WithContext(ctx).Order("name ASC").Find(&artists).Error
	return artists, err
}

func (s *ArtistService) GetByID(ctx context.Context, id uuid.UUID) (*models.Artist, error) {
	var a models.Artist
	found, err := lookup(ctx, s.db, &a, id)
	if err != nil || !found {
		return nil, err
	}
	return &a, nil
}

func (s *ArtistService) Create(ctx context.Context, req *CreateArtistRequest) (*models.Artist, error) {
	name, err := cleanName("artist", req.Name)
	if err != nil {
		return nil, err
	}
	photo, err := cleanPhotoURL(req.PhotoURL)
	if err != nil {
		return nil, err
	}
	if err := ensureNameFree(ctx, s.db, &models.Artist{}, "artist", name, uuid.Nil); err != nil {
		return nil, err
	}

	a := models.Artist{Name: name, PhotoURL: photo}
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, fmt.Errorf("create artist: %w", err)
	}
	s.log.Info("artist created", "artist_id", a.ID, "name", a.Name)
	return &a, nil
}

func (s *ArtistService) Update(ctx context.Context, id uuid.UUID, req *UpdateArtistRequest) (*models.Artist, error) {
	var a models.Artist
	if err := first(ctx, s.db, &a, "artist", id); err != nil {
		return nil, err
	}
	if req.Name != nil {
		name, err := cleanName("artist", *req.Name)
		if err != nil {
			return nil, err
		}
		if err := ensureNameFree(ctx, s.db, &models.Artist{}, "artist", name, id); err != nil {
			return nil, err
		}
		a.Name = name
	}
	if req.PhotoURL != nil {
		photo, err := cleanPhotoURL(req.PhotoURL)
		if err != nil {
			return nil, err
		}
		a.PhotoURL = photo
	}
	if err := s.db.WithContext(ctx).Save(&a).Error; err != nil {
		return nil, fmt.Errorf("update artist: %w", err)
	}
	return &a, nil
}

// Delete refuses artists that still appear in a performance or quiz slice,
// so no quiz ever drops below three slices.
func (s *ArtistService) Delete(ctx context.Context, id uuid.UUID) error {
	var a models.Artist
	if err := first(ctx, s.db, &a, "artist", id); err != nil {
		return err
	}
	if err := ensureUnreferenced(ctx, s.db, "artist", id,
		reference{&models.QuizSlice{}, "artist_id", "quiz slices"},
		reference{&models.Performance{}, "artist_id", "performances"},
	); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Artist{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete artist: %w", err)
	}
	s.log.Info("artist deleted", "artist_id", id)
	return nil
}
