package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/TomerAmran/guess-the-performer-sub001/testutil"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc, <-chan error) {
	t.Helper()
	hub := NewHub(testutil.Logger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()
	t.Cleanup(cancel)
	return hub, cancel, done
}

func feedServer(t *testing.T, hub *Hub, quizID uuid.UUID) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, quizID)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitViewers(t *testing.T, hub *Hub, quizID uuid.UUID, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Viewers(quizID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("viewers = %d, want %d", hub.Viewers(quizID), want)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestHubBroadcastReachesOnlyThatQuiz(t *testing.T) {
	hub, _, _ := startHub(t)
	quizA, quizB := uuid.New(), uuid.New()

	a1 := dial(t, feedServer(t, hub, quizA))
	a2 := dial(t, feedServer(t, hub, quizA))
	b := dial(t, feedServer(t, hub, quizB))
	waitViewers(t, hub, quizA, 2)
	waitViewers(t, hub, quizB, 1)

	hub.Broadcast(quizA, EventLikeCount, LikeCount{QuizID: quizA, LikeCount: 3})

	for _, conn := range []*websocket.Conn{a1, a2} {
		msg := readMessage(t, conn)
		if msg.Type != EventLikeCount {
			t.Fatalf("type = %q", msg.Type)
		}
		payload, _ := msg.Payload.(map[string]interface{})
		if payload["like_count"] != float64(3) {
			t.Fatalf("payload = %v", msg.Payload)
		}
	}

	_ = b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := b.ReadMessage(); err == nil {
		t.Fatalf("viewer of another quiz received the broadcast")
	}
}

func TestHubAnswersPing(t *testing.T) {
	hub, _, _ := startHub(t)
	quizID := uuid.New()
	conn := dial(t, feedServer(t, hub, quizID))
	waitViewers(t, hub, quizID, 1)

	ping, _ := json.Marshal(Message{Type: "ping"})
	if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != "pong" {
		t.Fatalf("type = %q, want pong", msg.Type)
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, _, _ := startHub(t)
	quizID := uuid.New()
	conn := dial(t, feedServer(t, hub, quizID))
	waitViewers(t, hub, quizID, 1)

	conn.Close()
	waitViewers(t, hub, quizID, 0)

	// Broadcasting to an empty quiz is a no-op.
	hub.Broadcast(quizID, EventCommentAdded, map[string]string{"id": "x"})
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub, cancel, done := startHub(t)
	quizID := uuid.New()
	conn := dial(t, feedServer(t, hub, quizID))
	waitViewers(t, hub, quizID, 1)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if hub.Viewers(quizID) != 0 {
		t.Fatalf("viewers left after shutdown")
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the connection to be closed")
	}
}
