package http

import (
	"context"
	"testing"
	"time"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
	"github.com/gorilla/websocket"
)

func TestWebSocketMeritListStream(t *testing.T) {
	server, service := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws/meritlist?assessmentId=quiz-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot is empty.
	typ, entries := readMeritList(conn, t)
	if typ != "meritList" || len(entries) != 0 {
		t.Fatalf("expected empty initial snapshot, got %s %+v", typ, entries)
	}

	if _, err := service.Submit(context.Background(), app.SubmitRequest{
		UserID:       "u1",
		AssessmentID: "quiz-1",
		Answers:      map[string][]int{"q1": {1}},
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	typ, entries = readMeritList(conn, t)
	if typ != "meritList" || len(entries) != 1 {
		t.Fatalf("expected one-entry update, got %s %+v", typ, entries)
	}
	if entries[0].Rank != 1 || entries[0].UserID != "u1" || entries[0].TotalScore != 2 {
		t.Fatalf("unexpected leader: %+v", entries[0])
	}
}

func TestWebSocketUnknownAssessment(t *testing.T) {
	server, _ := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws/meritlist?assessmentId=nope"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var msg struct {
		Type    string `json:"type"`
		Payload struct {
			Message string `json:"message"`
		} `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "error" || msg.Payload.Message == "" {
		t.Fatalf("expected error message, got %+v", msg)
	}
}

func readMeritList(conn *websocket.Conn, t *testing.T) (string, []domain.MeritListEntry) {
	t.Helper()
	var msg struct {
		Type    string                  `json:"type"`
		Payload []domain.MeritListEntry `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}
