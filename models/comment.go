package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const MaxCommentLength = 1000

// Comment is either top-level (ParentID nil) or a reply to a top-level
// comment. Replies are never replied to.
type Comment struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	QuizID    uuid.UUID  `json:"quiz_id" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	ParentID  *uuid.UUID `json:"parent_id" gorm:"type:uuid;index"`
	Content   string     `json:"content" gorm:"type:text;not null"`
	Hidden    bool       `json:"hidden" gorm:"not null;default:false"`
	CreatedAt time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt time.Time  `json:"updated_at"`

	User    *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Replies []Comment `json:"replies,omitempty" gorm:"foreignKey:ParentID"`
}

func (c *Comment) BeforeCreate(*gorm.DB) error { assignID(&c.ID); return nil }

func (c *Comment) IsReply() bool { return c.ParentID != nil }
