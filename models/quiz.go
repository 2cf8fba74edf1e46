package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SlicesPerQuiz   = 3
	MinClipDuration = 5
	MaxClipDuration = 120
)

type Quiz struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ComposerID   uuid.UUID  `json:"composer_id" gorm:"type:uuid;not null;index"`
	PieceID      *uuid.UUID `json:"piece_id" gorm:"type:uuid;index"`
	PieceName    string     `json:"piece_name" gorm:"not null"`
	InstrumentID uuid.UUID  `json:"instrument_id" gorm:"type:uuid;not null;index"`
	Duration     int        `json:"duration" gorm:"not null;default:30"` // seconds
	LikeCount    int        `json:"like_count" gorm:"not null;default:0;index"`
	CreatorID    uuid.UUID  `json:"creator_id" gorm:"type:uuid;not null;index"`
	CreatedAt    time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Composer   *Composer   `json:"composer,omitempty" gorm:"foreignKey:ComposerID"`
	Piece      *Piece      `json:"piece,omitempty" gorm:"foreignKey:PieceID"`
	Instrument *Instrument `json:"instrument,omitempty" gorm:"foreignKey:InstrumentID"`
	Creator    *User       `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Slices     []QuizSlice `json:"slices,omitempty" gorm:"foreignKey:QuizID"`
}

func (q *Quiz) BeforeCreate(*gorm.DB) error { assignID(&q.ID); return nil }

// QuizSlice pairs one clip with the artist who performs it.
type QuizSlice struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	QuizID        uuid.UUID  `json:"quiz_id" gorm:"type:uuid;not null;uniqueIndex:idx_slice_position"`
	Position      int        `json:"position" gorm:"not null;uniqueIndex:idx_slice_position"`
	ArtistID      uuid.UUID  `json:"artist_id" gorm:"type:uuid;not null;index"`
	PerformanceID *uuid.UUID `json:"performance_id" gorm:"type:uuid;index"`
	YouTubeURL    string     `json:"youtube_url" gorm:"column:youtube_url;not null"`
	StartTime     int        `json:"start_time" gorm:"not null;default:0"` // seconds
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Artist      *Artist      `json:"artist,omitempty" gorm:"foreignKey:ArtistID"`
	Performance *Performance `json:"performance,omitempty" gorm:"foreignKey:PerformanceID"`
}

func (s *QuizSlice) BeforeCreate(*gorm.DB) error { assignID(&s.ID); return nil }

type Like struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_like_user_quiz"`
	QuizID    uuid.UUID `json:"quiz_id" gorm:"type:uuid;not null;uniqueIndex:idx_like_user_quiz;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *Like) BeforeCreate(*gorm.DB) error { assignID(&l.ID); return nil }
