package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
	"github.com/TomerAmran/guess-the-performer-sub001/testutil"
)

type commentFixture struct {
	ctx    context.Context
	db     *gorm.DB
	svc    *CommentService
	feed   *recordingNotifier
	author *models.User
	cat    *testutil.Catalog
	quiz   *models.Quiz
}

func newCommentFixture(t *testing.T) *commentFixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.DB(t)
	feed := &recordingNotifier{}
	author := testutil.SeedUser(t, ctx, db, "author@example.com")
	cat := testutil.SeedCatalog(t, ctx, db)
	return &commentFixture{
		ctx:    ctx,
		db:     db,
		svc:    NewCommentService(db, nil, feed, testutil.Logger(t)),
		feed:   feed,
		author: author,
		cat:    cat,
		quiz:   testutil.SeedQuiz(t, ctx, db, cat, author.ID, "Nocturne", 0),
	}
}

func TestAddCommentAndReply(t *testing.T) {
	f := newCommentFixture(t)

	top, err := f.svc.AddComment(f.ctx, f.author.ID, f.quiz.ID, &AddCommentRequest{Content: "  Horowitz in clip two?  "})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if top.Content != "Horowitz in clip two?" {
		t.Fatalf("content not trimmed: %q", top.Content)
	}
	if top.User == nil || top.User.ID != f.author.ID || top.User.Email != "" {
		t.Fatalf("author not loaded as public user: %+v", top.User)
	}

	reply, err := f.svc.AddComment(f.ctx, f.author.ID, f.quiz.ID, &AddCommentRequest{Content: "Nope, Pollini", ParentID: &top.ID})
	if err != nil {
		t.Fatalf("AddComment reply: %v", err)
	}
	if !reply.IsReply() || *reply.ParentID != top.ID {
		t.Fatalf("reply not linked to parent")
	}

	kinds := f.feed.kinds()
	if len(kinds) != 2 || kinds[0] != EventCommentAdded || kinds[1] != EventCommentAdded {
		t.Fatalf("unexpected events: %v", kinds)
	}
}

func TestAddCommentRejections(t *testing.T) {
	f := newCommentFixture(t)
	top, err := f.svc.AddComment(f.ctx, f.author.ID, f.quiz.ID, &AddCommentRequest{Content: "First"})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	reply, err := f.svc.AddComment(f.ctx, f.author.ID, f.quiz.ID, &AddCommentRequest{Content: "Second", ParentID: &top.ID})
	if err != nil {
		t.Fatalf("AddComment reply: %v", err)
	}

	otherQuiz := testutil.SeedQuiz(t, f.ctx, f.db, f.cat, f.author.ID, "Ballade", 0)
	missing := uuid.New()

	tests := []struct {
		name   string
		quizID uuid.UUID
		req    AddCommentRequest
		code   string
	}{
		{"reply to a reply", f.quiz.ID, AddCommentRequest{Content: "deeper", ParentID: &reply.ID}, apierr.CodeBadRequest},
		{"parent on another quiz", otherQuiz.ID, AddCommentRequest{Content: "wrong quiz", ParentID: &top.ID}, apierr.CodeBadRequest},
		{"unknown parent", f.quiz.ID, AddCommentRequest{Content: "orphan", ParentID: &missing}, apierr.CodeNotFound},
		{"unknown quiz", missing, AddCommentRequest{Content: "hello"}, apierr.CodeNotFound},
		{"empty", f.quiz.ID, AddCommentRequest{Content: "   "}, apierr.CodeBadRequest},
		{"too long", f.quiz.ID, AddCommentRequest{Content: strings.Repeat("é", models.MaxCommentLength+1)}, apierr.CodeBadRequest},
		{"profane", f.quiz.ID, AddCommentRequest{Content: "what a sh1t tempo"}, apierr.CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.svc.AddComment(f.ctx, f.author.ID, tt.quizID, &req)
			wantCode(t, err, tt.code)
		})
	}

	ok := strings.Repeat("é", models.MaxCommentLength)
	if _, err := f.svc.AddComment(f.ctx, f.author.ID, f.quiz.ID, &AddCommentRequest{Content: ok}); err != nil {
		t.Fatalf("comment of exactly %d characters should be accepted: %v", models.MaxCommentLength, err)
	}
}

func TestAddCommentCapPerUserAndQuiz(t *testing.T) {
	f := newCommentFixture(t)
	other := testutil.SeedUser(t, f.ctx, f.db, "other@example.com")

	top, err := f.svc.AddComment(f.ctx, f.author.ID, f.quiz.ID, &AddCommentRequest{Content: "one"})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	for i := 1; i < MaxCommentsPerQuiz; i++ {
		// Replies count towards the cap too.
		if _, err := f.svc.AddComment(f.ctx, f.author.ID, f.quiz.ID, &AddCommentRequest{Content: "more", ParentID: &top.ID}); err != nil {
			t.Fatalf("AddComment #%d: %v", i+1, err)
		}
	}

	_, err = f.svc.AddComment(f.ctx, f.author.ID, f.quiz.ID, &AddCommentRequest{Content: "one too many"})
	wantCode(t, err, apierr.CodeTooManyRequests)

	if _, err := f.svc.AddComment(f.ctx, other.ID, f.quiz.ID, &AddCommentRequest{Content: "my first"}); err != nil {
		t.Fatalf("cap must be per user: %v", err)
	}
}

func TestUpdateAndDeleteCommentAuthorOnly(t *testing.T) {
	f := newCommentFixture(t)
	stranger := testutil.SeedUser(t, f.ctx, f.db, "stranger@example.com")

	top, err := f.svc.AddComment(f.ctx, f.author.ID, f.quiz.ID, &AddCommentRequest{Content: "Rubinstein"})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if _, err := f.svc.AddComment(f.ctx, stranger.ID, f.quiz.ID, &AddCommentRequest{Content: "agreed", ParentID: &top.ID}); err != nil {
		t.Fatalf("AddComment reply: %v", err)
	}

	_, err = f.svc.UpdateComment(f.ctx, stranger.ID, top.ID, &UpdateCommentRequest{Content: "edited"})
	wantCode(t, err, apierr.CodeForbidden)
	wantCode(t, f.svc.DeleteComment(f.ctx, stranger.ID, top.ID), apierr.CodeForbidden)

	_, err = f.svc.UpdateComment(f.ctx, f.author.ID, top.ID, &UpdateCommentRequest{Content: "fuck"})
	wantCode(t, err, apierr.CodeBadRequest)

	updated, err := f.svc.UpdateComment(f.ctx, f.author.ID, top.ID, &UpdateCommentRequest{Content: "Actually Horowitz"})
	if err != nil {
		t.Fatalf("UpdateComment: %v", err)
	}
	if updated.Content != "Actually Horowitz" {
		t.Fatalf("content = %q", updated.Content)
	}

	if err := f.svc.DeleteComment(f.ctx, f.author.ID, top.ID); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if n := countRows(t, f.db, &models.Comment{}, "quiz_id = ?", f.quiz.ID); n != 0 {
		t.Fatalf("expected replies to be deleted with their parent, %d left", n)
	}
	wantCode(t, f.svc.DeleteComment(f.ctx, f.author.ID, top.ID), apierr.CodeNotFound)

	kinds := f.feed.kinds()
	if kinds[len(kinds)-1] != EventCommentDeleted {
		t.Fatalf("last event = %q, want %q", kinds[len(kinds)-1], EventCommentDeleted)
	}
}

func seedComment(t *testing.T, f *commentFixture, content string, parentID *uuid.UUID, hidden bool, at time.Time) *models.Comment {
	t.Helper()
	c := &models.Comment{
		QuizID:    f.quiz.ID,
		UserID:    f.author.ID,
		ParentID:  parentID,
		Content:   content,
		Hidden:    hidden,
		CreatedAt: at,
	}
	if err := f.db.Omit("User", "Replies").Create(c).Error; err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	return c
}

func TestGetCommentsPagesNewestFirst(t *testing.T) {
	f := newCommentFixture(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var tops []*models.Comment
	for i := 0; i < 5; i++ {
		tops = append(tops, seedComment(t, f, "top", nil, false, base.Add(time.Duration(i)*time.Minute)))
	}
	seedComment(t, f, "hidden top", nil, true, base.Add(10*time.Minute))
	newest := tops[4]
	seedComment(t, f, "second reply", &newest.ID, false, base.Add(30*time.Minute))
	seedComment(t, f, "first reply", &newest.ID, false, base.Add(20*time.Minute))
	seedComment(t, f, "hidden reply", &newest.ID, true, base.Add(25*time.Minute))

	page, err := f.svc.GetComments(f.ctx, f.quiz.ID, nil, 2)
	if err != nil {
		t.Fatalf("GetComments: %v", err)
	}
	if len(page.Comments) != 2 || page.Comments[0].ID != tops[4].ID || page.Comments[1].ID != tops[3].ID {
		t.Fatalf("unexpected first page")
	}
	if page.NextCursor == nil || *page.NextCursor != tops[3].ID {
		t.Fatalf("next cursor = %v, want %s", page.NextCursor, tops[3].ID)
	}
	replies := page.Comments[0].Replies
	if len(replies) != 2 || replies[0].Content != "first reply" || replies[1].Content != "second reply" {
		t.Fatalf("replies should be visible only and oldest first, got %+v", replies)
	}

	page, err = f.svc.GetComments(f.ctx, f.quiz.ID, page.NextCursor, 2)
	if err != nil {
		t.Fatalf("GetComments page 2: %v", err)
	}
	if len(page.Comments) != 2 || page.Comments[0].ID != tops[2].ID || page.Comments[1].ID != tops[1].ID {
		t.Fatalf("unexpected second page")
	}

	page, err = f.svc.GetComments(f.ctx, f.quiz.ID, page.NextCursor, 2)
	if err != nil {
		t.Fatalf("GetComments page 3: %v", err)
	}
	if len(page.Comments) != 1 || page.Comments[0].ID != tops[0].ID {
		t.Fatalf("unexpected last page")
	}
	if page.NextCursor != nil {
		t.Fatalf("last page should have no cursor")
	}

	unknown := uuid.New()
	_, err = f.svc.GetComments(f.ctx, f.quiz.ID, &unknown, 2)
	wantCode(t, err, apierr.CodeBadRequest)
}

func TestHideComment(t *testing.T) {
	f := newCommentFixture(t)
	top, err := f.svc.AddComment(f.ctx, f.author.ID, f.quiz.ID, &AddCommentRequest{Content: "spoiler: Pollini"})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	hidden, err := f.svc.HideComment(f.ctx, top.ID, true)
	if err != nil {
		t.Fatalf("HideComment: %v", err)
	}
	if !hidden.Hidden {
		t.Fatalf("comment not marked hidden")
	}
	page, err := f.svc.GetComments(f.ctx, f.quiz.ID, nil, 0)
	if err != nil {
		t.Fatalf("GetComments: %v", err)
	}
	if len(page.Comments) != 0 {
		t.Fatalf("hidden comment still listed")
	}

	if _, err := f.svc.HideComment(f.ctx, top.ID, false); err != nil {
		t.Fatalf("unhide: %v", err)
	}
	page, err = f.svc.GetComments(f.ctx, f.quiz.ID, nil, 0)
	if err != nil {
		t.Fatalf("GetComments: %v", err)
	}
	if len(page.Comments) != 1 {
		t.Fatalf("unhidden comment missing")
	}

	_, err = f.svc.HideComment(f.ctx, uuid.New(), true)
	wantCode(t, err, apierr.CodeNotFound)

	kinds := f.feed.kinds()
	if kinds[len(kinds)-1] != EventCommentHidden {
		t.Fatalf("last event = %q", kinds[len(kinds)-1])
	}
}

func TestCommentCapHoldsUnderConcurrentPosts(t *testing.T) {
	f := newCommentFixture(t)
	for i := 0; i < MaxCommentsPerQuiz-1; i++ {
		if _, err := f.svc.AddComment(f.ctx, f.author.ID, f.quiz.ID, &AddCommentRequest{Content: "warming up"}); err != nil {
			t.Fatalf("AddComment %d: %v", i, err)
		}
	}

	const posters = 8
	errs := make([]error, posters)
	var wg sync.WaitGroup
	for i := 0; i < posters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.AddComment(f.ctx, f.author.ID, f.quiz.ID, &AddCommentRequest{Content: "last word"})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case !apierr.Is(err, apierr.CodeTooManyRequests):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted %d concurrent posts, want 1", accepted)
	}
	if n := countRows(t, f.db, &models.Comment{}, "quiz_id = ? AND user_id = ?", f.quiz.ID, f.author.ID); n != MaxCommentsPerQuiz {
		t.Fatalf("comments = %d, want %d", n, MaxCommentsPerQuiz)
	}
}
