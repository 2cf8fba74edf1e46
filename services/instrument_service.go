package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
)

type InstrumentService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInstrumentService(db *gorm.DB, log *logger.Logger) *InstrumentService {
	return &InstrumentService{db: db, log: log.Service("instrument")}
}

type CreateInstrumentRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *InstrumentService) GetAll(ctx context.Context) ([]models.Instrument, error) {
	instruments := []models.Instrument{}
	err := s.db.WithContext(ctx).Order("name ASC").Find(&instruments).Error
	return instruments, err
}

func (s *InstrumentService) GetByID(ctx context.Context, id uuid.UUID) (*models.Instrument, error) {
	var i models.Instrument
	found, err := lookup(ctx, s.db, &i, id)
	if err != nil || !found {
		return nil, err
	}
	return &i, nil
}

func (s *InstrumentService) Create(ctx context.Context, req *CreateInstrumentRequest) (*models.Instrument, error) {
	name, err := cleanName("instrument", req.Name)
	if err != nil {
		return nil, err
	}
	if err := ensureNameFree(ctx, s.db, &models.Instrument{}, "instrument", name, uuid.Nil); err != nil {
		return nil, err
	}
	i := models.Instrument{Name: name}
	if err := s.db.WithContext(ctx).Create(&i).Error; err != nil {
		return nil, fmt.Errorf("create instrument: %w", err)
	}
	s.log.Info("instrument created", "instrument_id", i.ID, "name", i.Name)
	return &i, nil
}
