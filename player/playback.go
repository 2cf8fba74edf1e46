package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultPollInterval = 100 * time.Millisecond

var ErrDeckClosed = errors.New("deck closed")

// VideoPlayer adapts an embedded video widget. Ready blocks until the widget
// reports it can take commands.
type VideoPlayer interface {
	Ready(ctx context.Context) error
	Seek(seconds float64) error
	Play() error
	Pause() error
	Stop() error
	CurrentTime() (float64, error)
	Destroy()
}

type Progress struct {
	SliceID  uuid.UUID
	Elapsed  time.Duration
	Fraction float64
}

// ClipTimer fires once after its duration unless cancelled first.
type ClipTimer struct {
	timer *time.Timer
	done  chan struct{}
	once  sync.Once
}

func NewClipTimer(d time.Duration) *ClipTimer {
	t := &ClipTimer{done: make(chan struct{})}
	t.timer = time.AfterFunc(d, func() { t.once.Do(func() { close(t.done) }) })
	return t
}

func (t *ClipTimer) Done() <-chan struct{} { return t.done }

// Cancel stops the timer; it reports whether the timer had not fired yet.
func (t *ClipTimer) Cancel() bool {
	return t.timer.Stop()
}

type activeClip struct {
	sliceID uuid.UUID
	cancel  context.CancelFunc
	done    chan struct{}
}

// Deck plays one clip at a time across a quiz's video players. Starting a
// clip stops whichever clip is playing.
type Deck struct {
	players    map[uuid.UUID]VideoPlayer
	poll       time.Duration
	onProgress func(Progress)

	mu     sync.Mutex
	active *activeClip
	closed bool
}

type DeckOption func(*Deck)

func WithPollInterval(d time.Duration) DeckOption {
	return func(dk *Deck) {
		if d > 0 {
			dk.poll = d
		}
	}
}

func WithProgress(fn func(Progress)) DeckOption {
	return func(dk *Deck) { dk.onProgress = fn }
}

func NewDeck(players map[uuid.UUID]VideoPlayer, opts ...DeckOption) *Deck {
	d := &Deck{players: players, poll: DefaultPollInterval}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Play blocks until the clip has played for length, is stopped, or ctx is
// done. A clip without a player or a video id is skipped.
func (d *Deck) Play(ctx context.Context, clip Clip, length time.Duration) error {
	p, ok := d.players[clip.SliceID]
	if !ok || p == nil || clip.VideoID == "" {
		return nil
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	ac := &activeClip{sliceID: clip.SliceID, cancel: cancel, done: make(chan struct{})}
	for {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			cancel()
			return ErrDeckClosed
		}
		if d.active == nil {
			d.active = ac
			d.mu.Unlock()
			break
		}
		prev := d.active
		d.mu.Unlock()
		prev.cancel()
		<-prev.done
	}
	defer func() {
		cancel()
		d.mu.Lock()
		if d.active == ac {
			d.active = nil
		}
		d.mu.Unlock()
		close(ac.done)
	}()

	// stopped distinguishes Stop() from cancellation of the caller's ctx.
	stopped := func() error {
		_ = p.Pause()
		return parent.Err()
	}

	if err := p.Ready(ctx); err != nil {
		if ctx.Err() != nil {
			return stopped()
		}
		return err
	}
	start := float64(clip.StartTime)
	if err := p.Seek(start); err != nil {
		return err
	}
	if err := p.Play(); err != nil {
		return err
	}

	timer := NewClipTimer(length)
	defer timer.Cancel()
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return stopped()
		case <-timer.Done():
			_ = p.Pause()
			d.report(Progress{SliceID: clip.SliceID, Elapsed: length, Fraction: 1})
			return nil
		case <-ticker.C:
			cur, err := p.CurrentTime()
			if err != nil {
				continue
			}
			elapsed := time.Duration((cur - start) * float64(time.Second))
			d.report(Progress{SliceID: clip.SliceID, Elapsed: elapsed, Fraction: fraction(elapsed, length)})
		}
	}
}

func fraction(elapsed, length time.Duration) float64 {
	if length <= 0 {
		return 1
	}
	f := float64(elapsed) / float64(length)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func (d *Deck) report(p Progress) {
	if d.onProgress != nil {
		d.onProgress(p)
	}
}

// Playing returns the slice currently playing, if any.
func (d *Deck) Playing() (uuid.UUID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return uuid.Nil, false
	}
	return d.active.sliceID, true
}

// Stop halts the playing clip and waits for Play to return.
func (d *Deck) Stop() {
	d.mu.Lock()
	ac := d.active
	d.mu.Unlock()
	if ac == nil {
		return
	}
	ac.cancel()
	<-ac.done
}

// Close stops playback and destroys every player. The deck is unusable
// afterwards.
func (d *Deck) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.Stop()
	for _, p := range d.players {
		if p != nil {
			_ = p.Stop()
			p.Destroy()
		}
	}
}
