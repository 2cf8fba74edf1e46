// Package player models one play-through of a quiz: clips and artist choices
// shuffled independently, answers assigned per clip, submission gated on
// three distinct artists, and scoring. The state is a plain serializable
// struct so it can survive a sign-in round trip.
package player

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/TomerAmran/guess-the-performer-sub001/models"
	"github.com/TomerAmran/guess-the-performer-sub001/youtube"
)

type Phase string

const (
	PhaseListening Phase = "listening"
	PhaseSubmitted Phase = "submitted"
)

var (
	ErrSubmitted     = errors.New("answers already submitted")
	ErrNotSubmitted  = errors.New("answers not submitted yet")
	ErrUnknownClip   = errors.New("unknown clip")
	ErrUnknownArtist = errors.New("unknown artist")
	ErrNoAnswerKey   = errors.New("session carries no answer key")
)

// ValidationError blocks submission; Message is shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type Clip struct {
	SliceID   uuid.UUID `json:"slice_id"`
	VideoID   string    `json:"video_id"`
	StartTime int       `json:"start_time"`
	// ArtistID is the answer key; Nil in redacted sessions.
	ArtistID uuid.UUID `json:"artist_id"`
}

type Choice struct {
	ArtistID uuid.UUID `json:"artist_id"`
	Name     string    `json:"name"`
	PhotoURL *string   `json:"photo_url,omitempty"`
}

type ClipResult struct {
	SliceID   uuid.UUID `json:"slice_id"`
	Assigned  uuid.UUID `json:"assigned_artist_id"`
	Actual    uuid.UUID `json:"actual_artist_id"`
	IsCorrect bool      `json:"is_correct"`
}

type Result struct {
	Clips []ClipResult `json:"clips"`
	Score int          `json:"score"`
	Total int          `json:"total"`
}

type Session struct {
	QuizID   uuid.UUID               `json:"quiz_id"`
	Duration int                     `json:"duration"`
	Clips    []Clip                  `json:"clips"`
	Choices  []Choice                `json:"choices"`
	Answers  map[uuid.UUID]uuid.UUID `json:"answers"`
	Phase    Phase                   `json:"phase"`
	Result   *Result                 `json:"result,omitempty"`
	Attempt  int                     `json:"attempt"`
}

// NewSession builds a shuffled session from a quiz whose slices and slice
// artists are loaded. Clip order and choice order are shuffled
// independently so neither reveals the mapping.
func NewSession(quiz *models.Quiz, rng *rand.Rand) (*Session, error) {
	s, err := fromQuiz(quiz)
	if err != nil {
		return nil, err
	}
	s.shuffle(rng)
	return s, nil
}

func fromQuiz(quiz *models.Quiz) (*Session, error) {
	if quiz == nil {
		return nil, errors.New("nil quiz")
	}
	if len(quiz.Slices) != models.SlicesPerQuiz {
		return nil, fmt.Errorf("quiz %s has %d slices, want %d", quiz.ID, len(quiz.Slices), models.SlicesPerQuiz)
	}
	s := &Session{
		QuizID:   quiz.ID,
		Duration: quiz.Duration,
		Clips:    make([]Clip, 0, len(quiz.Slices)),
		Choices:  make([]Choice, 0, len(quiz.Slices)),
		Answers:  map[uuid.UUID]uuid.UUID{},
		Phase:    PhaseListening,
		Attempt:  1,
	}
	for _, sl := range quiz.Slices {
		// A missing or malformed video id leaves the clip unplayable but
		// still answerable.
		videoID, _ := youtube.ParseVideoID(sl.YouTubeURL)
		s.Clips = append(s.Clips, Clip{
			SliceID:   sl.ID,
			VideoID:   videoID,
			StartTime: sl.StartTime,
			ArtistID:  sl.ArtistID,
		})
		choice := Choice{ArtistID: sl.ArtistID}
		if sl.Artist != nil {
			choice.Name = sl.Artist.Name
			choice.PhotoURL = sl.Artist.PhotoURL
		}
		s.Choices = append(s.Choices, choice)
	}
	return s, nil
}

func (s *Session) shuffle(rng *rand.Rand) {
	Shuffle(rng, len(s.Clips), func(i, j int) { s.Clips[i], s.Clips[j] = s.Clips[j], s.Clips[i] })
	Shuffle(rng, len(s.Choices), func(i, j int) { s.Choices[i], s.Choices[j] = s.Choices[j], s.Choices[i] })
}

// Shuffle is a Fisher–Yates shuffle over n elements.
func Shuffle(rng *rand.Rand, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		swap(i, j)
	}
}

func (s *Session) clip(sliceID uuid.UUID) (Clip, bool) {
	for _, c := range s.Clips {
		if c.SliceID == sliceID {
			return c, true
		}
	}
	return Clip{}, false
}

func (s *Session) hasChoice(artistID uuid.UUID) bool {
	for _, c := range s.Choices {
		if c.ArtistID == artistID {
			return true
		}
	}
	return false
}

func (s *Session) Assign(sliceID, artistID uuid.UUID) error {
	if s.Phase == PhaseSubmitted {
		return ErrSubmitted
	}
	if _, ok := s.clip(sliceID); !ok {
		return ErrUnknownClip
	}
	if !s.hasChoice(artistID) {
		return ErrUnknownArtist
	}
	if s.Answers == nil {
		s.Answers = map[uuid.UUID]uuid.UUID{}
	}
	s.Answers[sliceID] = artistID
	return nil
}

func (s *Session) Unassign(sliceID uuid.UUID) error {
	if s.Phase == PhaseSubmitted {
		return ErrSubmitted
	}
	delete(s.Answers, sliceID)
	return nil
}

// Validate reports why the current answers cannot be submitted, or nil.
func (s *Session) Validate() error {
	for _, c := range s.Clips {
		if _, ok := s.Answers[c.SliceID]; !ok {
			return &ValidationError{Message: "Assign an artist to every clip before submitting"}
		}
	}
	seen := make(map[uuid.UUID]struct{}, len(s.Clips))
	for _, c := range s.Clips {
		a := s.Answers[c.SliceID]
		if _, dup := seen[a]; dup {
			return &ValidationError{Message: "Each artist can only be chosen once"}
		}
		seen[a] = struct{}{}
	}
	return nil
}

func (s *Session) CanSubmit() bool {
	return s.Phase == PhaseListening && s.Validate() == nil
}

// Submit freezes the answers and scores them.
func (s *Session) Submit() (*Result, error) {
	if s.Phase == PhaseSubmitted {
		return nil, ErrSubmitted
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	for _, c := range s.Clips {
		if c.ArtistID == uuid.Nil {
			return nil, ErrNoAnswerKey
		}
	}
	res := Score(s.Clips, s.Answers)
	s.Result = &res
	s.Phase = PhaseSubmitted
	return s.Result, nil
}

// Retry reshuffles both orders and clears answers for another attempt.
func (s *Session) Retry(rng *rand.Rand) error {
	if s.Phase != PhaseSubmitted {
		return ErrNotSubmitted
	}
	s.Answers = map[uuid.UUID]uuid.UUID{}
	s.Result = nil
	s.Phase = PhaseListening
	s.Attempt++
	s.shuffle(rng)
	return nil
}

// Redacted returns a copy without the answer key, safe to hand to players
// before they answer.
func (s *Session) Redacted() *Session {
	cp := *s
	cp.Clips = make([]Clip, len(s.Clips))
	for i, c := range s.Clips {
		c.ArtistID = uuid.Nil
		cp.Clips[i] = c
	}
	cp.Choices = append([]Choice(nil), s.Choices...)
	cp.Answers = make(map[uuid.UUID]uuid.UUID, len(s.Answers))
	for k, v := range s.Answers {
		cp.Answers[k] = v
	}
	if s.Result != nil {
		r := *s.Result
		r.Clips = append([]ClipResult(nil), s.Result.Clips...)
		cp.Result = &r
	}
	return &cp
}

// Score counts clips whose assigned artist is the clip's performer.
func Score(clips []Clip, answers map[uuid.UUID]uuid.UUID) Result {
	res := Result{Clips: make([]ClipResult, 0, len(clips)), Total: len(clips)}
	for _, c := range clips {
		assigned := answers[c.SliceID]
		ok := assigned != uuid.Nil && assigned == c.ArtistID
		if ok {
			res.Score++
		}
		res.Clips = append(res.Clips, ClipResult{
			SliceID:   c.SliceID,
			Assigned:  assigned,
			Actual:    c.ArtistID,
			IsCorrect: ok,
		})
	}
	return res
}

// Check scores answers against a quiz without shuffling or persisting
// anything.
func Check(quiz *models.Quiz, answers map[uuid.UUID]uuid.UUID) (*Result, error) {
	s, err := fromQuiz(quiz)
	if err != nil {
		return nil, err
	}
	for sliceID, artistID := range answers {
		if err := s.Assign(sliceID, artistID); err != nil {
			return nil, err
		}
	}
	return s.Submit()
}
