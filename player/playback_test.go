package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeVideo struct {
	mu        sync.Mutex
	ready     chan struct{}
	calls     []string
	seekedTo  float64
	startedAt time.Time
	playing   bool
	destroyed bool
}

func newFakeVideo(readyNow bool) *fakeVideo {
	f := &fakeVideo{ready: make(chan struct{})}
	if readyNow {
		close(f.ready)
	}
	return f
}

func (f *fakeVideo) record(c string) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeVideo) Ready(ctx context.Context) error {
	select {
	case <-f.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeVideo) Seek(s float64) error {
	f.mu.Lock()
	f.seekedTo = s
	f.mu.Unlock()
	f.record("seek")
	return nil
}

func (f *fakeVideo) Play() error {
	f.mu.Lock()
	f.playing = true
	f.startedAt = time.Now()
	f.mu.Unlock()
	f.record("play")
	return nil
}

func (f *fakeVideo) Pause() error {
	f.mu.Lock()
	f.playing = false
	f.mu.Unlock()
	f.record("pause")
	return nil
}

func (f *fakeVideo) Stop() error {
	f.record("stop")
	return nil
}

func (f *fakeVideo) CurrentTime() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.playing {
		return f.seekedTo, nil
	}
	return f.seekedTo + time.Since(f.startedAt).Seconds(), nil
}

func (f *fakeVideo) Destroy() {
	f.mu.Lock()
	f.destroyed = true
	f.mu.Unlock()
	f.record("destroy")
}

func (f *fakeVideo) isPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeVideo) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestDeckPlaysBoundedClip(t *testing.T) {
	id := uuid.New()
	video := newFakeVideo(true)

	var mu sync.Mutex
	var progress []Progress
	deck := NewDeck(map[uuid.UUID]VideoPlayer{id: video},
		WithPollInterval(5*time.Millisecond),
		WithProgress(func(p Progress) {
			mu.Lock()
			progress = append(progress, p)
			mu.Unlock()
		}),
	)

	start := time.Now()
	err := deck.Play(context.Background(), Clip{SliceID: id, VideoID: "aaaaaaaaaaa", StartTime: 12}, 60*time.Millisecond)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if time.Since(start) < 60*time.Millisecond {
		t.Fatal("Play returned before the clip duration elapsed")
	}
	if video.isPlaying() {
		t.Fatal("clip should be paused after its duration")
	}
	calls := video.callList()
	if len(calls) < 3 || calls[0] != "seek" || calls[1] != "play" || calls[len(calls)-1] != "pause" {
		t.Fatalf("unexpected call sequence %v", calls)
	}
	if video.seekedTo != 12 {
		t.Fatalf("seeked to %v, want 12", video.seekedTo)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(progress) < 2 {
		t.Fatalf("expected polled progress updates, got %d", len(progress))
	}
	last := progress[len(progress)-1]
	if last.Fraction != 1 || last.SliceID != id {
		t.Fatalf("final progress = %+v", last)
	}
	for _, p := range progress {
		if p.Fraction < 0 || p.Fraction > 1 {
			t.Fatalf("fraction out of range: %+v", p)
		}
	}
	if _, playing := deck.Playing(); playing {
		t.Fatal("deck should be idle")
	}
}

func TestDeckStopHaltsPlayback(t *testing.T) {
	id := uuid.New()
	video := newFakeVideo(true)
	deck := NewDeck(map[uuid.UUID]VideoPlayer{id: video}, WithPollInterval(5*time.Millisecond))

	errc := make(chan error, 1)
	go func() {
		errc <- deck.Play(context.Background(), Clip{SliceID: id, VideoID: "aaaaaaaaaaa"}, time.Minute)
	}()
	waitFor(t, video.isPlaying)

	deck.Stop()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Play after Stop: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Play did not return after Stop")
	}
	if video.isPlaying() {
		t.Fatal("video still playing after Stop")
	}
}

func TestDeckCancelWhileWaitingForReady(t *testing.T) {
	id := uuid.New()
	video := newFakeVideo(false)
	deck := NewDeck(map[uuid.UUID]VideoPlayer{id: video})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := deck.Play(ctx, Clip{SliceID: id, VideoID: "aaaaaaaaaaa"}, time.Minute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Play = %v, want deadline exceeded", err)
	}
	for _, c := range video.callList() {
		if c == "play" {
			t.Fatal("video must not start before it is ready")
		}
	}
}

func TestDeckStartingAnotherClipStopsTheFirst(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	v1, v2 := newFakeVideo(true), newFakeVideo(true)
	deck := NewDeck(map[uuid.UUID]VideoPlayer{first: v1, second: v2}, WithPollInterval(5*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		done <- deck.Play(context.Background(), Clip{SliceID: first, VideoID: "aaaaaaaaaaa"}, time.Minute)
	}()
	waitFor(t, v1.isPlaying)

	if err := deck.Play(context.Background(), Clip{SliceID: second, VideoID: "bbbbbbbbbbb"}, 20*time.Millisecond); err != nil {
		t.Fatalf("second Play: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("first Play: %v", err)
	}
	if v1.isPlaying() || v2.isPlaying() {
		t.Fatal("no clip should be playing")
	}
}

func TestDeckSkipsClipsWithoutVideo(t *testing.T) {
	id := uuid.New()
	video := newFakeVideo(false)
	deck := NewDeck(map[uuid.UUID]VideoPlayer{id: video})
	if err := deck.Play(context.Background(), Clip{SliceID: id}, time.Minute); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := deck.Play(context.Background(), Clip{SliceID: uuid.New(), VideoID: "aaaaaaaaaaa"}, time.Minute); err != nil {
		t.Fatalf("Play unknown slice: %v", err)
	}
	if len(video.callList()) != 0 {
		t.Fatal("player should not be touched")
	}
}

func TestDeckCloseDestroysPlayers(t *testing.T) {
	id := uuid.New()
	video := newFakeVideo(true)
	deck := NewDeck(map[uuid.UUID]VideoPlayer{id: video})
	deck.Close()
	deck.Close()
	if !video.destroyed {
		t.Fatal("Close should destroy players")
	}
	if err := deck.Play(context.Background(), Clip{SliceID: id, VideoID: "aaaaaaaaaaa"}, time.Second); !errors.Is(err, ErrDeckClosed) {
		t.Fatalf("Play after Close = %v", err)
	}
}

func TestClipTimer(t *testing.T) {
	fired := NewClipTimer(5 * time.Millisecond)
	select {
	case <-fired.Done():
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	if fired.Cancel() {
		t.Fatal("Cancel after firing should report false")
	}

	cancelled := NewClipTimer(time.Hour)
	if !cancelled.Cancel() {
		t.Fatal("Cancel before firing should report true")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
