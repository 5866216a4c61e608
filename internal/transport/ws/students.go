package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/orbitest-backend/internal/domain"
	"github.com/orbitest-backend/internal/presence"
)

// ServeStudents upgrades and runs one student socket until it drops.
func (h *Handler) ServeStudents(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WARN: student upgrade: %v", err)
		return
	}
	c := newConn(ws)
	defer c.Close()

	var studentID string
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			sendError(c, "malformed message")
			continue
		}
		h.studentEvent(r.Context(), c, &studentID, msg)
	}

	// Teardown runs on its own context: the request context is already
	// dying with the socket.
	h.studentGone(context.Background(), c, studentID)
}

func (h *Handler) studentEvent(ctx context.Context, c *conn, studentID *string, msg inbound) {
	if msg.Event == eventRegister {
		var p registerPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.ID == "" {
			sendError(c, "register requires an id")
			return
		}
		// Re-registration under a new id releases the old binding first,
		// otherwise the old entry keeps pointing at this socket forever.
		if prev := *studentID; prev != "" && prev != p.ID {
			h.studentGone(ctx, c, prev)
		}
		*studentID = p.ID
		h.registerStudent(ctx, c, p.ID)
		return
	}
	if *studentID == "" {
		sendError(c, "register first")
		return
	}

	switch msg.Event {
	case eventMarkViewed:
		var p markViewedPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.NotificationID == "" {
			sendError(c, "markAsViewed requires a notificationId")
			return
		}
		if _, err := h.notifier.MarkViewed(ctx, domain.SubjectStudent, p.NotificationID, *studentID); err != nil {
			log.Printf("WARN: markAsViewed %s for student %s: %v", p.NotificationID, *studentID, err)
			sendError(c, "could not mark notification as viewed")
		}
	case eventMarkViewedAll:
		if _, err := h.notifier.MarkAllViewed(ctx, domain.SubjectStudent, *studentID); err != nil {
			log.Printf("WARN: markAsViewedAll for student %s: %v", *studentID, err)
			sendError(c, "could not mark notifications as viewed")
		}
	case eventStartTest:
		var p startTestPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.TestID == "" {
			sendError(c, "startTest requires a testId")
			return
		}
		h.startTest(ctx, c, *studentID, p)
	case eventFinishTest:
		var p finishTestPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			sendError(c, "malformed finishTest payload")
			return
		}
		h.finishTest(ctx, *studentID, p)
	default:
		sendError(c, "unknown event")
	}
}

// registerStudent binds the socket to the student, replays missed
// notifications and announces the student online to mentors.
func (h *Handler) registerStudent(ctx context.Context, c *conn, studentID string) {
	h.students.Register(studentID, c)
	log.Printf("student %s registered (conn %s)", studentID, c.ID())

	if n, err := h.notifier.ReplayPending(ctx, domain.SubjectStudent, studentID, c); err != nil {
		log.Printf("WARN: replay for student %s: %v", studentID, err)
	} else if n > 0 {
		log.Printf("replayed %d pending notifications to student %s", n, studentID)
	}

	broadcast(h.mentorAudience(ctx, studentID), eventStudentStatus, h.statusFor(ctx, studentID, statusOnline))
}

func (h *Handler) startTest(ctx context.Context, c *conn, studentID string, p startTestPayload) {
	h.roster.Start(presence.TestSession{
		StudentID: studentID,
		TestID:    p.TestID,
		TestTitle: p.TestTitle,
		StartedAt: time.Now(),
		HandleID:  c.ID(),
	})
	broadcast(h.mentorAudience(ctx, studentID), eventStudentStartedTest, testActivity{
		StudentID: studentID,
		TestID:    p.TestID,
		TestTitle: p.TestTitle,
	})
}

func (h *Handler) finishTest(ctx context.Context, studentID string, p finishTestPayload) {
	session, ok := h.roster.Finish(studentID)
	if !ok {
		return
	}
	broadcast(h.mentorAudience(ctx, studentID), eventStudentFinishedTest, testActivity{
		StudentID: studentID,
		TestID:    session.TestID,
		TestTitle: session.TestTitle,
		Score:     &p.Score,
	})
	if _, err := h.notifier.NotifyStudentMentor(ctx, studentID, domain.NotificationPayload{
		Title: "Test finished",
		Body:  "A student finished the test \"" + session.TestTitle + "\".",
		Kind:  domain.KindTestCompleted,
		AdditionalData: map[string]interface{}{
			"testId": session.TestID,
			"score":  p.Score,
		},
	}); err != nil {
		log.Printf("WARN: finish-test notification for student %s: %v", studentID, err)
	}
}

// studentGone handles socket teardown. Removal is matched against this
// handle: when a reconnect already replaced the entry, presence and the
// roster belong to the new socket and stay untouched.
func (h *Handler) studentGone(ctx context.Context, c *conn, studentID string) {
	if studentID == "" {
		return
	}
	if session, ok := h.roster.Get(studentID); ok && session.HandleID == c.ID() {
		h.roster.Finish(studentID)
		broadcast(h.mentorAudience(ctx, studentID), eventStudentLeftTest, testActivity{
			StudentID: studentID,
			TestID:    session.TestID,
			TestTitle: session.TestTitle,
			Reason:    "disconnect",
		})
	}
	if h.students.Remove(studentID, c) {
		log.Printf("student %s disconnected (conn %s)", studentID, c.ID())
		broadcast(h.mentorAudience(ctx, studentID), eventStudentStatus, h.statusFor(ctx, studentID, statusOffline))
	}
}
