package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
	"github.com/TomerAmran/guess-the-performer-sub001/player"
	"github.com/TomerAmran/guess-the-performer-sub001/youtube"
)

const (
	OrderRecent = "recent"
	OrderLikes  = "likes"
)

type QuizService struct {
	db       *gorm.DB
	index    QuizIndex
	notifier Notifier
	log      *logger.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewQuizService wires the quiz store. index and notifier may be nil.
func NewQuizService(db *gorm.DB, index QuizIndex, notifier Notifier, log *logger.Logger) *QuizService {
	if index == nil {
		index = NoopIndex{}
	}
	return &QuizService{
		db:       db,
		index:    index,
		notifier: notifier,
		log:      log.Service("quiz"),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// QuizRequest is the body of both create and update. A quiz names its piece
// either by PieceID or by ComposerID plus free-text PieceName.
type QuizRequest struct {
	PieceID      *uuid.UUID     `json:"piece_id"`
	ComposerID   *uuid.UUID     `json:"composer_id"`
	PieceName    string         `json:"piece_name"`
	InstrumentID uuid.UUID      `json:"instrument_id" binding:"required"`
	Duration     int            `json:"duration" binding:"required,min=5,max=120"`
	Slices       []SliceRequest `json:"slices" binding:"required,len=3,dive"`
}

// SliceRequest names its clip either by PerformanceID or by ArtistID plus
// YouTubeURL.
type SliceRequest struct {
	PerformanceID *uuid.UUID `json:"performance_id"`
	ArtistID      *uuid.UUID `json:"artist_id"`
	YouTubeURL    string     `json:"youtube_url"`
	StartTime     int        `json:"start_time" binding:"min=0"`
}

type SearchQuizzesRequest struct {
	ComposerID   *uuid.UUID
	InstrumentID *uuid.UUID
	PieceName    string
	Query        string
	OrderBy      string
}

type LikeStatus struct {
	Liked         bool `json:"liked"`
	Authenticated bool `json:"authenticated"`
	LikeCount     int  `json:"like_count"`
}

type LikeCount struct {
	QuizID    uuid.UUID `json:"quiz_id"`
	LikeCount int       `json:"like_count"`
}

type resolvedQuiz struct {
	composerID   uuid.UUID
	pieceID      *uuid.UUID
	pieceName    string
	instrumentID uuid.UUID
	duration     int
	slices       []models.QuizSlice
}

// resolve validates a request against the catalog before anything is
// written.
func (s *QuizService) resolve(ctx context.Context, req *QuizRequest) (*resolvedQuiz, error) {
	if req.Duration < models.MinClipDuration || req.Duration > models.MaxClipDuration {
		return nil, apierr.BadRequest("duration must be between %d and %d seconds", models.MinClipDuration, models.MaxClipDuration)
	}
	if len(req.Slices) != models.SlicesPerQuiz {
		return nil, apierr.BadRequest("a quiz needs exactly %d slices, got %d", models.SlicesPerQuiz, len(req.Slices))
	}

	out := &resolvedQuiz{duration: req.Duration, instrumentID: req.InstrumentID}

	switch {
	case req.PieceID != nil:
		var piece models.Piece
		if err := first(ctx, s.db, &piece, "piece", *req.PieceID); err != nil {
			return nil, err
		}
		if req.ComposerID != nil && *req.ComposerID != piece.ComposerID {
			return nil, apierr.BadRequest("piece does not belong to the given composer")
		}
		out.composerID = piece.ComposerID
		out.pieceID = &piece.ID
		out.pieceName = piece.Name
	case req.ComposerID != nil:
		if err := first(ctx, s.db, &models.Composer{}, "composer", *req.ComposerID); err != nil {
			return nil, err
		}
		name, err := cleanName("piece", req.PieceName)
		if err != nil {
			return nil, err
		}
		out.composerID = *req.ComposerID
		out.pieceName = name
	default:
		return nil, apierr.BadRequest("either piece_id or composer_id with piece_name is required")
	}

	if err := first(ctx, s.db, &models.Instrument{}, "instrument", req.InstrumentID); err != nil {
		return nil, err
	}

	for i, sr := range req.Slices {
		sl, err := s.resolveSlice(ctx, i, sr, out.pieceID)
		if err != nil {
			return nil, err
		}
		out.slices = append(out.slices, sl)
	}
	return out, nil
}

func (s *QuizService) resolveSlice(ctx context.Context, pos int, sr SliceRequest, pieceID *uuid.UUID) (models.QuizSlice, error) {
	if sr.StartTime < 0 {
		return models.QuizSlice{}, apierr.BadRequest("slice %d: start time must not be negative", pos+1)
	}
	sl := models.QuizSlice{Position: pos, StartTime: sr.StartTime}

	if sr.PerformanceID != nil {
		var perf models.Performance
		if err := first(ctx, s.db, &perf, "performance", *sr.PerformanceID); err != nil {
			return sl, err
		}
		if sr.ArtistID != nil && *sr.ArtistID != perf.ArtistID {
			return sl, apierr.BadRequest("slice %d: performance is by a different artist", pos+1)
		}
		if pieceID != nil && perf.PieceID != *pieceID {
			return sl, apierr.BadRequest("slice %d: performance is of a different piece", pos+1)
		}
		sl.ArtistID = perf.ArtistID
		sl.PerformanceID = &perf.ID
		sl.YouTubeURL = perf.YouTubeURL
		return sl, nil
	}

	if sr.ArtistID == nil {
		return sl, apierr.BadRequest("slice %d: artist_id or performance_id is required", pos+1)
	}
	if err := first(ctx, s.db, &models.Artist{}, "artist", *sr.ArtistID); err != nil {
		return sl, err
	}
	url := strings.TrimSpace(sr.YouTubeURL)
	if !youtube.IsValidURL(url) {
		return sl, apierr.BadRequest("slice %d: %q is not a YouTube video URL", pos+1, sr.YouTubeURL)
	}
	sl.ArtistID = *sr.ArtistID
	sl.YouTubeURL = url
	return sl, nil
}

func (s *QuizService) CreateQuiz(ctx context.Context, userID uuid.UUID, req *QuizRequest) (*models.Quiz, error) {
	r, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	quiz := models.Quiz{
		ComposerID:   r.composerID,
		PieceID:      r.pieceID,
		PieceName:    r.pieceName,
		InstrumentID: r.instrumentID,
		Duration:     r.duration,
		CreatorID:    userID,
	}
	if err := tx.Omit(clause.Associations).Create(&quiz).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	for i := range r.slices {
		r.slices[i].QuizID = quiz.ID
		if err := tx.Omit(clause.Associations).Create(&r.slices[i]).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("create quiz slice: %w", err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit quiz: %w", err)
	}

	s.log.Info("quiz created", "quiz_id", quiz.ID, "creator_id", userID, "piece_name", quiz.PieceName)
	created, err := s.GetQuizByID(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}
	s.syncIndex(ctx, created)
	return created, nil
}

// UpdateQuiz replaces everything but the creator and like count. Slices are
// rewritten in place by position so their ids survive.
func (s *QuizService) UpdateQuiz(ctx context.Context, userID, quizID uuid.UUID, req *QuizRequest) (*models.Quiz, error) {
	quiz, err := s.ownedQuiz(ctx, userID, quizID, "update")
	if err != nil {
		return nil, err
	}
	r, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	// Only the edited columns: like_count moves concurrently under LikeQuiz.
	err = tx.Model(&models.Quiz{}).Where("id = ?", quiz.ID).Updates(map[string]interface{}{
		"composer_id":   r.composerID,
		"piece_id":      r.pieceID,
		"piece_name":    r.pieceName,
		"instrument_id": r.instrumentID,
		"duration":      r.duration,
		"updated_at":    time.Now(),
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("update quiz: %w", err)
	}

	for _, sl := range r.slices {
		res := tx.Model(&models.QuizSlice{}).
			Where("quiz_id = ? AND position = ?", quiz.ID, sl.Position).
			Updates(map[string]interface{}{
				"artist_id":      sl.ArtistID,
				"performance_id": sl.PerformanceID,
				"youtube_url":    sl.YouTubeURL,
				"start_time":     sl.StartTime,
			})
		if res.Error != nil {
			tx.Rollback()
			return nil, fmt.Errorf("update quiz slice: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			sl.QuizID = quiz.ID
			if err := tx.Omit(clause.Associations).Create(&sl).Error; err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("create quiz slice: %w", err)
			}
		}
	}
	if err := tx.Where("quiz_id = ? AND position >= ?", quiz.ID, models.SlicesPerQuiz).Delete(&models.QuizSlice{}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("trim quiz slices: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit quiz: %w", err)
	}

	s.log.Info("quiz updated", "quiz_id", quiz.ID)
	updated, err := s.GetQuizByID(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}
	s.syncIndex(ctx, updated)
	return updated, nil
}

func (s *QuizService) DeleteQuiz(ctx context.Context, userID, quizID uuid.UUID) error {
	if _, err := s.ownedQuiz(ctx, userID, quizID, "delete"); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ? AND parent_id IS NOT NULL", quizID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.QuizSlice{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Quiz{}, "id = ?", quizID).Error
	})
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}

	s.log.Info("quiz deleted", "quiz_id", quizID, "user_id", userID)
	if err := s.index.Delete(ctx, quizID); err != nil {
		s.log.Warn("search index delete failed", "quiz_id", quizID, "error", err)
	}
	return nil
}

func (s *QuizService) ownedQuiz(ctx context.Context, userID, quizID uuid.UUID, action string) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := first(ctx, s.db, &quiz, "quiz", quizID); err != nil {
		return nil, err
	}
	if quiz.CreatorID != userID {
		return nil, apierr.Forbidden("only the quiz creator can %s this quiz", action)
	}
	return &quiz, nil
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Composer").
		Preload("Piece").
		Preload("Instrument").
		Preload("Creator", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "image")
		}).
		Preload("Slices", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_slices.position ASC")
		}).
		Preload("Slices.Artist").
		Preload("Slices.Performance")
}

func (s *QuizService) GetAllQuizzes(ctx context.Context) ([]models.Quiz, error) {
	quizzes := []models.Quiz{}
	err := withDetails(s.db.WithContext(ctx)).Order("created_at DESC").Find(&quizzes).Error
	return quizzes, err
}

func (s *QuizService) GetUserQuizzes(ctx context.Context, userID uuid.UUID) ([]models.Quiz, error) {
	quizzes := []models.Quiz{}
	err := withDetails(s.db.WithContext(ctx)).
		Where("creator_id = ?", userID).
		Order("created_at DESC").
		Find(&quizzes).Error
	return quizzes, err
}

// GetQuizByID returns nil without error when the quiz does not exist.
func (s *QuizService) GetQuizByID(ctx context.Context, quizID uuid.UUID) (*models.Quiz, error) {
	var quiz models.Quiz
	found, err := lookup(ctx, withDetails(s.db), &quiz, quizID)
	if err != nil || !found {
		return nil, err
	}
	return &quiz, nil
}

func (s *QuizService) mustGetQuiz(ctx context.Context, quizID uuid.UUID) (*models.Quiz, error) {
	quiz, err := s.GetQuizByID(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	if quiz == nil {
		return nil, apierr.NotFound("quiz not found")
	}
	return quiz, nil
}

// SearchQuizzes AND-combines the filters. A free-text query narrows the
// candidates through the search index when one is configured.
func (s *QuizService) SearchQuizzes(ctx context.Context, req *SearchQuizzesRequest) ([]models.Quiz, error) {
	quizzes := []models.Quiz{}
	q := withDetails(s.db.WithContext(ctx))

	if req.ComposerID != nil {
		q = q.Where("quizzes.composer_id = ?", *req.ComposerID)
	}
	if req.InstrumentID != nil {
		q = q.Where("quizzes.instrument_id = ?", *req.InstrumentID)
	}
	if name := strings.TrimSpace(req.PieceName); name != "" {
		q = q.Where(`LOWER(quizzes.piece_name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(name))+"%")
	}
	if text := strings.TrimSpace(req.Query); text != "" && s.index.Enabled() {
		ids, err := s.index.Search(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return quizzes, nil
		}
		q = q.Where("quizzes.id IN ?", ids)
	}

	switch req.OrderBy {
	case OrderLikes:
		q = q.Order("quizzes.like_count DESC").Order("quizzes.created_at DESC")
	case OrderRecent, "":
		q = q.Order("quizzes.created_at DESC")
	default:
		return nil, apierr.BadRequest("orderBy must be %q or %q", OrderLikes, OrderRecent)
	}

	if err := q.Find(&quizzes).Error; err != nil {
		return nil, fmt.Errorf("search quizzes: %w", err)
	}
	return quizzes, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// LikeQuiz is idempotent: the count moves only when a like row is inserted.
func (s *QuizService) LikeQuiz(ctx context.Context, userID, quizID uuid.UUID) (*LikeCount, error) {
	var inserted bool
	count, err := s.toggleLike(ctx, quizID, func(tx *gorm.DB) (bool, error) {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Like{UserID: userID, QuizID: quizID})
		inserted = res.RowsAffected > 0
		if res.Error != nil || !inserted {
			return false, res.Error
		}
		return true, tx.Model(&models.Quiz{}).Where("id = ?", quizID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	if inserted {
		s.log.Debug("quiz liked", "quiz_id", quizID, "user_id", userID)
	}
	return count, nil
}

// UnlikeQuiz is a no-op for quizzes the user has not liked.
func (s *QuizService) UnlikeQuiz(ctx context.Context, userID, quizID uuid.UUID) (*LikeCount, error) {
	return s.toggleLike(ctx, quizID, func(tx *gorm.DB) (bool, error) {
		res := tx.Where("user_id = ? AND quiz_id = ?", userID, quizID).Delete(&models.Like{})
		if res.Error != nil || res.RowsAffected == 0 {
			return false, res.Error
		}
		return true, tx.Model(&models.Quiz{}).Where("id = ? AND like_count > 0", quizID).
			UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error
	})
}

func (s *QuizService) toggleLike(ctx context.Context, quizID uuid.UUID, apply func(tx *gorm.DB) (bool, error)) (*LikeCount, error) {
	var (
		quiz    models.Quiz
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := first(ctx, tx, &quiz, "quiz", quizID); err != nil {
			return err
		}
		var err error
		if changed, err = apply(tx); err != nil {
			return err
		}
		return tx.Select("like_count").Take(&quiz, "id = ?", quizID).Error
	})
	if err != nil {
		if _, ok := apierr.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("update like: %w", err)
	}

	count := &LikeCount{QuizID: quizID, LikeCount: quiz.LikeCount}
	if changed {
		s.notify(quizID, EventLikeCount, count)
		if s.index.Enabled() {
			if q, err := s.GetQuizByID(ctx, quizID); err == nil && q != nil {
				s.syncIndex(ctx, q)
			}
		}
	}
	return count, nil
}

// GetLikeStatus accepts a nil userID for anonymous callers.
func (s *QuizService) GetLikeStatus(ctx context.Context, userID *uuid.UUID, quizID uuid.UUID) (*LikeStatus, error) {
	var quiz models.Quiz
	if err := first(ctx, s.db.Select("id", "like_count"), &quiz, "quiz", quizID); err != nil {
		return nil, err
	}
	status := &LikeStatus{LikeCount: quiz.LikeCount}
	if userID == nil {
		return status, nil
	}
	status.Authenticated = true

	var n int64
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND quiz_id = ?", *userID, quizID).
		Count(&n).Error
	if err != nil {
		return nil, fmt.Errorf("load like status: %w", err)
	}
	status.Liked = n > 0
	return status, nil
}

// CheckAnswers scores a full set of answers without persisting anything.
func (s *QuizService) CheckAnswers(ctx context.Context, quizID uuid.UUID, answers map[uuid.UUID]uuid.UUID) (*player.Result, error) {
	quiz, err := s.mustGetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	res, err := player.Check(quiz, answers)
	if err != nil {
		var verr *player.ValidationError
		switch {
		case errors.As(err, &verr):
			return nil, apierr.BadRequest("%s", verr.Message)
		case errors.Is(err, player.ErrUnknownClip), errors.Is(err, player.ErrUnknownArtist):
			return nil, apierr.BadRequest("%v", err)
		}
		return nil, fmt.Errorf("check answers: %w", err)
	}
	return res, nil
}

// NewPlaySession deals a freshly shuffled session with the answer key
// removed. Answers are scored through CheckAnswers.
func (s *QuizService) NewPlaySession(ctx context.Context, quizID uuid.UUID) (*player.Session, error) {
	quiz, err := s.mustGetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	s.rngMu.Lock()
	session, err := player.NewSession(quiz, s.rng)
	s.rngMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("new play session: %w", err)
	}
	return session.Redacted(), nil
}

// Reindex rebuilds the search index from the database.
func (s *QuizService) Reindex(ctx context.Context) (int, error) {
	quizzes, err := s.GetAllQuizzes(ctx)
	if err != nil {
		return 0, err
	}
	docs := make([]QuizDocument, 0, len(quizzes))
	for i := range quizzes {
		docs = append(docs, DocumentFor(&quizzes[i]))
	}
	if err := s.index.Reindex(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *QuizService) syncIndex(ctx context.Context, quiz *models.Quiz) {
	if !s.index.Enabled() {
		return
	}
	if err := s.index.Upsert(ctx, DocumentFor(quiz)); err != nil {
		s.log.Warn("search index upsert failed", "quiz_id", quiz.ID, "error", err)
	}
}

func (s *QuizService) notify(quizID uuid.UUID, messageType string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Broadcast(quizID, messageType, payload)
	}
}
