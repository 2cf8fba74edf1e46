package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Composer struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	PhotoURL  *string   `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Pieces []Piece `json:"pieces,omitempty" gorm:"foreignKey:ComposerID"`
}

func (c *Composer) BeforeCreate(*gorm.DB) error { assignID(&c.ID); return nil }

type Artist struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	PhotoURL  *string   `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Artist) BeforeCreate(*gorm.DB) error { assignID(&a.ID); return nil }

type Instrument struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Instrument) BeforeCreate(*gorm.DB) error { assignID(&i.ID); return nil }

type Piece struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name       string    `json:"name" gorm:"not null;index"`
	ComposerID uuid.UUID `json:"composer_id" gorm:"type:uuid;not null;index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Composer *Composer `json:"composer,omitempty" gorm:"foreignKey:ComposerID"`
}

func (p *Piece) BeforeCreate(*gorm.DB) error { assignID(&p.ID); return nil }

// Performance is one artist's recording of one piece.
type Performance struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	PieceID    uuid.UUID `json:"piece_id" gorm:"type:uuid;not null;index"`
	ArtistID   uuid.UUID `json:"artist_id" gorm:"type:uuid;not null;index"`
	YouTubeURL string    `json:"youtube_url" gorm:"column:youtube_url;not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Piece  *Piece  `json:"piece,omitempty" gorm:"foreignKey:PieceID"`
	Artist *Artist `json:"artist,omitempty" gorm:"foreignKey:ArtistID"`
}

func (p *Performance) BeforeCreate(*gorm.DB) error { assignID(&p.ID); return nil }
