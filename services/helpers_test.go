package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
	"github.com/TomerAmran/guess-the-performer-sub001/testutil"
)

type event struct {
	quizID  uuid.UUID
	kind    string
	payload interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) Broadcast(quizID uuid.UUID, messageType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{quizID: quizID, kind: messageType, payload: payload})
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.kind
	}
	return out
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apierr.Is(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

type quizFixture struct {
	ctx   context.Context
	db    *gorm.DB
	svc   *QuizService
	feed  *recordingNotifier
	owner *models.User
	cat   *testutil.Catalog
}

func newQuizFixture(t *testing.T) *quizFixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.DB(t)
	feed := &recordingNotifier{}
	return &quizFixture{
		ctx:   ctx,
		db:    db,
		svc:   NewQuizService(db, nil, feed, testutil.Logger(t)),
		feed:  feed,
		owner: testutil.SeedUser(t, ctx, db, "owner@example.com"),
		cat:   testutil.SeedCatalog(t, ctx, db),
	}
}

// freeTextRequest names the piece by composer plus free text and each clip
// by artist plus URL.
func (f *quizFixture) freeTextRequest(pieceName string) *QuizRequest {
	composerID := f.cat.Composer.ID
	videos := []string{
		"https://www.youtube.com/watch?v=YGRO05WcNDk",
		"https://youtu.be/9E6b3swbnWg",
		"https://www.youtube.com/embed/tV5U8kVYS88",
	}
	req := &QuizRequest{
		ComposerID:   &composerID,
		PieceName:    pieceName,
		InstrumentID: f.cat.Instrument.ID,
		Duration:     30,
	}
	for i, a := range f.cat.Artists {
		id := a.ID
		req.Slices = append(req.Slices, SliceRequest{ArtistID: &id, YouTubeURL: videos[i], StartTime: 5 * i})
	}
	return req
}
