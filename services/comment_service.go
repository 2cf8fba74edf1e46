package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
	"github.com/TomerAmran/guess-the-performer-sub001/moderation"
)

const (
	MaxCommentsPerQuiz     = 5
	DefaultCommentPageSize = 20
	MaxCommentPageSize     = 50
)

type CommentService struct {
	db       *gorm.DB
	filter   *moderation.Filter
	notifier Notifier
	log      *logger.Logger
}

func NewCommentService(db *gorm.DB, filter *moderation.Filter, notifier Notifier, log *logger.Logger) *CommentService {
	if filter == nil {
		filter = moderation.NewFilter()
	}
	return &CommentService{db: db, filter: filter, notifier: notifier, log: log.Service("comment")}
}

type AddCommentRequest struct {
	Content  string     `json:"content" binding:"required"`
	ParentID *uuid.UUID `json:"parent_id"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type HideCommentRequest struct {
	Hidden *bool `json:"hidden" binding:"required"`
}

type CommentPage struct {
	Comments   []models.Comment `json:"comments"`
	NextCursor *uuid.UUID       `json:"next_cursor"`
}

type commentRef struct {
	ID       uuid.UUID  `json:"id"`
	QuizID   uuid.UUID  `json:"quiz_id"`
	ParentID *uuid.UUID `json:"parent_id"`
	Hidden   bool       `json:"hidden"`
}

func publicUser(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "image")
}

func (s *CommentService) cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apierr.BadRequest("comment must not be empty")
	}
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		return "", apierr.BadRequest("comment must be at most %d characters", models.MaxCommentLength)
	}
	if s.filter.IsProfane(content) {
		return "", apierr.BadRequest("comment contains inappropriate language")
	}
	return content, nil
}

// AddComment posts a top-level comment or, with ParentID, a reply to a
// top-level comment on the same quiz.
func (s *CommentService) AddComment(ctx context.Context, userID, quizID uuid.UUID, req *AddCommentRequest) (*models.Comment, error) {
	if err := first(ctx, s.db.Select("id"), &models.Quiz{}, "quiz", quizID); err != nil {
		return nil, err
	}

	content, err := s.cleanContent(req.Content)
	if err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		var parent models.Comment
		if err := first(ctx, s.db, &parent, "parent comment", *req.ParentID); err != nil {
			return nil, err
		}
		if parent.IsReply() {
			return nil, apierr.BadRequest("replies cannot be replied to")
		}
		if parent.QuizID != quizID {
			return nil, apierr.BadRequest("parent comment belongs to another quiz")
		}
	}

	comment := models.Comment{
		QuizID:   quizID,
		UserID:   userID,
		ParentID: req.ParentID,
		Content:  content,
	}
	// The cap check and the insert share one transaction; on Postgres the
	// quiz row lock serialises concurrent posts.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			var locked models.Quiz
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").
				Take(&locked, "id = ?", quizID).Error; err != nil {
				return fmt.Errorf("lock quiz: %w", err)
			}
		}
		var posted int64
		if err := tx.Model(&models.Comment{}).
			Where("user_id = ? AND quiz_id = ?", userID, quizID).
			Count(&posted).Error; err != nil {
			return fmt.Errorf("count comments: %w", err)
		}
		if posted >= MaxCommentsPerQuiz {
			return apierr.TooManyRequests("you can post at most %d comments per quiz", MaxCommentsPerQuiz)
		}
		if err := tx.Omit("User", "Replies").Create(&comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.load(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("comment added", "comment_id", created.ID, "quiz_id", quizID, "user_id", userID, "reply", created.IsReply())
	s.notify(quizID, EventCommentAdded, created)
	return created, nil
}

func (s *CommentService) load(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var c models.Comment
	if err := first(ctx, s.db.Preload("User", publicUser), &c, "comment", id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CommentService) authored(ctx context.Context, userID, commentID uuid.UUID, action string) (*models.Comment, error) {
	var c models.Comment
	if err := first(ctx, s.db, &c, "comment", commentID); err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, apierr.Forbidden("only the author can %s this comment", action)
	}
	return &c, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, userID, commentID uuid.UUID, req *UpdateCommentRequest) (*models.Comment, error) {
	c, err := s.authored(ctx, userID, commentID, "edit")
	if err != nil {
		return nil, err
	}
	content, err := s.cleanContent(req.Content)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(c).Update("content", content).Error; err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}

	updated, err := s.load(ctx, commentID)
	if err != nil {
		return nil, err
	}
	s.notify(updated.QuizID, EventCommentUpdated, updated)
	return updated, nil
}

// DeleteComment removes the comment and, for a top-level comment, its
// replies.
func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID uuid.UUID) error {
	c, err := s.authored(ctx, userID, commentID, "delete")
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", c.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, "id = ?", c.ID).Error
	})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	s.log.Info("comment deleted", "comment_id", c.ID, "quiz_id", c.QuizID)
	s.notify(c.QuizID, EventCommentDeleted, commentRef{ID: c.ID, QuizID: c.QuizID, ParentID: c.ParentID})
	return nil
}

// HideComment sets the moderation flag. Callers must already be admins.
func (s *CommentService) HideComment(ctx context.Context, commentID uuid.UUID, hidden bool) (*models.Comment, error) {
	var c models.Comment
	if err := first(ctx, s.db, &c, "comment", commentID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&c).Update("hidden", hidden).Error; err != nil {
		return nil, fmt.Errorf("hide comment: %w", err)
	}

	s.log.Info("comment moderated", "comment_id", c.ID, "hidden", hidden)
	s.notify(c.QuizID, EventCommentHidden, commentRef{ID: c.ID, QuizID: c.QuizID, ParentID: c.ParentID, Hidden: hidden})
	return &c, nil
}

// GetComments pages through visible top-level comments, newest first, each
// with its visible replies oldest first. cursor is the id of the last
// comment of the previous page.
func (s *CommentService) GetComments(ctx context.Context, quizID uuid.UUID, cursor *uuid.UUID, limit int) (*CommentPage, error) {
	if limit <= 0 {
		limit = DefaultCommentPageSize
	}
	if limit > MaxCommentPageSize {
		limit = MaxCommentPageSize
	}

	q := s.db.WithContext(ctx).
		Preload("User", publicUser).
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Where("hidden = ?", false).Order("created_at ASC").Order("id ASC")
		}).
		Preload("Replies.User", publicUser).
		Where("quiz_id = ? AND parent_id IS NULL AND hidden = ?", quizID, false)

	if cursor != nil {
		var last models.Comment
		err := s.db.WithContext(ctx).Select("id", "created_at").
			Where("quiz_id = ?", quizID).
			Take(&last, "id = ?", *cursor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.BadRequest("invalid cursor")
		}
		if err != nil {
			return nil, fmt.Errorf("load cursor: %w", err)
		}
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", last.CreatedAt, last.CreatedAt, last.ID)
	}

	comments := []models.Comment{}
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	page := &CommentPage{Comments: comments}
	if len(comments) > limit {
		page.Comments = comments[:limit]
		next := page.Comments[limit-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

func (s *CommentService) notify(quizID uuid.UUID, messageType string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Broadcast(quizID, messageType, payload)
	}
}
