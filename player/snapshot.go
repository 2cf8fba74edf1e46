package player

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/TomerAmran/guess-the-performer-sub001/models"
)

// Encode serialises a session for the pending-session bridge.
func Encode(s *Session) ([]byte, error) {
	return json.Marshal(s)
}

// Decode restores a session and rejects snapshots that could not have come
// from NewSession.
func Decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	if s.Answers == nil {
		s.Answers = map[uuid.UUID]uuid.UUID{}
	}
	return &s, nil
}

func (s *Session) check() error {
	if s.QuizID == uuid.Nil {
		return fmt.Errorf("snapshot: missing quiz id")
	}
	if len(s.Clips) != models.SlicesPerQuiz || len(s.Choices) != models.SlicesPerQuiz {
		return fmt.Errorf("snapshot: want %d clips and choices, got %d and %d",
			models.SlicesPerQuiz, len(s.Clips), len(s.Choices))
	}
	switch s.Phase {
	case PhaseListening, PhaseSubmitted:
	default:
		return fmt.Errorf("snapshot: unknown phase %q", s.Phase)
	}
	for sliceID, artistID := range s.Answers {
		if _, ok := s.clip(sliceID); !ok {
			return fmt.Errorf("snapshot: answer for unknown clip %s", sliceID)
		}
		if !s.hasChoice(artistID) {
			return fmt.Errorf("snapshot: answer with unknown artist %s", artistID)
		}
	}
	return nil
}
