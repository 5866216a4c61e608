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

// ServeMentors upgrades and runs one mentor socket until it drops.
func (h *Handler) ServeMentors(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WARN: mentor upgrade: %v", err)
		return
	}
	c := newConn(ws)
	defer c.Close()

	var mentorID string
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
		h.mentorEvent(r.Context(), c, &mentorID, msg)
	}

	if mentorID != "" && h.mentors.Remove(mentorID, c) {
		log.Printf("mentor %s disconnected (conn %s)", mentorID, c.ID())
	}
}

func (h *Handler) mentorEvent(ctx context.Context, c *conn, mentorID *string, msg inbound) {
	if msg.Event == eventRegister {
		var p registerPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.ID == "" {
			sendError(c, "register requires an id")
			return
		}
		// Re-registration under a new id releases the old binding first.
		if prev := *mentorID; prev != "" && prev != p.ID && h.mentors.Remove(prev, c) {
			log.Printf("mentor %s rebound to %s (conn %s)", prev, p.ID, c.ID())
		}
		*mentorID = p.ID
		h.registerMentor(ctx, c, p.ID)
		return
	}
	if *mentorID == "" {
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
		if _, err := h.notifier.MarkViewed(ctx, domain.SubjectMentor, p.NotificationID, *mentorID); err != nil {
			log.Printf("WARN: markAsViewed %s for mentor %s: %v", p.NotificationID, *mentorID, err)
			sendError(c, "could not mark notification as viewed")
		}
	case eventMarkViewedAll:
		if _, err := h.notifier.MarkAllViewed(ctx, domain.SubjectMentor, *mentorID); err != nil {
			log.Printf("WARN: markAsViewedAll for mentor %s: %v", *mentorID, err)
			sendError(c, "could not mark notifications as viewed")
		}
	default:
		sendError(c, "unknown event")
	}
}

// registerMentor binds the socket, replays missed notifications and sends
// the current presence picture: who is online and who is mid-test.
func (h *Handler) registerMentor(ctx context.Context, c *conn, mentorID string) {
	h.mentors.Register(mentorID, c)
	log.Printf("mentor %s registered (conn %s)", mentorID, c.ID())

	if n, err := h.notifier.ReplayPending(ctx, domain.SubjectMentor, mentorID, c); err != nil {
		log.Printf("WARN: replay for mentor %s: %v", mentorID, err)
	} else if n > 0 {
		log.Printf("replayed %d pending notifications to mentor %s", n, mentorID)
	}

	if err := c.SendJSON(presence.Event{Event: eventOnlineStudents, Data: h.onlineStudents(ctx)}); err != nil {
		log.Printf("WARN: online-students snapshot to mentor %s: %v", mentorID, err)
	}
	if err := c.SendJSON(presence.Event{Event: eventStudentsInTest, Data: h.roster.Snapshot()}); err != nil {
		log.Printf("WARN: in-test snapshot to mentor %s: %v", mentorID, err)
	}
}

// onlineStudents builds the directory-enriched snapshot of connected
// students. A failed batch lookup degrades to bare ids.
func (h *Handler) onlineStudents(ctx context.Context) []studentStatus {
	ids := h.students.OnlineIDs()
	out := make([]studentStatus, 0, len(ids))

	profiles := map[string]domain.Student{}
	if students, err := h.dir.GetByIDs(ctx, ids); err == nil {
		for _, s := range students {
			profiles[s.StudentID] = s
		}
	} else if len(ids) > 0 {
		log.Printf("WARN: online-students lookup: %v", err)
	}

	now := time.Now()
	for _, sid := range ids {
		st := studentStatus{StudentID: sid, Status: statusOnline, Timestamp: now}
		if p, ok := profiles[sid]; ok {
			st.FirstName = p.FirstName
			st.LastName = p.LastName
			st.Grade = p.Grade
			st.Avatar = p.Avatar
		}
		out = append(out, st)
	}
	return out
}
