// Package ws carries the live side of the notification core: two socket
// namespaces (students, mentors) speaking a small JSON event protocol.
// Every socket moves through three states: unregistered after the upgrade,
// registered once the client announces its subject id, closed on teardown.
package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/orbitest-backend/internal/domain"
	"github.com/orbitest-backend/internal/presence"
)

// Notifier is the slice of the dispatcher the socket layer consumes.
type Notifier interface {
	ReplayPending(ctx context.Context, class domain.SubjectClass, subjectID string, conn presence.Conn) (int, error)
	MarkViewed(ctx context.Context, class domain.SubjectClass, notificationID, subjectID string) (*domain.Notification, error)
	MarkAllViewed(ctx context.Context, class domain.SubjectClass, subjectID string) (int, error)
	NotifyStudentMentor(ctx context.Context, studentID string, p domain.NotificationPayload) (*domain.Notification, error)
}

// StudentDirectory enriches presence events with profile fields and
// resolves the mentor responsible for a student.
type StudentDirectory interface {
	Get(ctx context.Context, studentID string) (*domain.Student, error)
	GetByIDs(ctx context.Context, studentIDs []string) ([]domain.Student, error)
}

type Handler struct {
	upgrader websocket.Upgrader
	students *presence.Registry
	mentors  *presence.Registry
	roster   *presence.Roster
	notifier Notifier
	dir      StudentDirectory
}

type Deps struct {
	StudentReg     *presence.Registry
	MentorReg      *presence.Registry
	Roster         *presence.Roster
	Notifier       Notifier
	Directory      StudentDirectory
	AllowedOrigins []string
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		students: d.StudentReg,
		mentors:  d.MentorReg,
		roster:   d.Roster,
		notifier: d.Notifier,
		dir:      d.Directory,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(d.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// mentorAudience returns the mentor connections a student-scoped event
// should reach: the student's own mentor when that mentor is online, the
// whole namespace when the ownership cannot be resolved.
func (h *Handler) mentorAudience(ctx context.Context, studentID string) []presence.Conn {
	student, err := h.dir.Get(ctx, studentID)
	if err == nil && student.MentorID != "" {
		if conn, ok := h.mentors.Lookup(student.MentorID); ok {
			return []presence.Conn{conn}
		}
	}
	return h.mentors.Connections()
}

// broadcast pushes an event to each connection, best effort.
func broadcast(conns []presence.Conn, event string, data interface{}) {
	for _, c := range conns {
		if err := c.SendJSON(presence.Event{Event: event, Data: data}); err != nil {
			log.Printf("WARN: broadcast %s: %v", event, err)
		}
	}
}

func sendError(c presence.Conn, msg string) {
	_ = c.SendJSON(presence.Event{Event: eventError, Data: errorPayload{Message: msg}})
}

// statusFor builds the presence announcement for a student, enriched from
// the directory when possible. A failed lookup degrades to the bare id.
func (h *Handler) statusFor(ctx context.Context, studentID, status string) studentStatus {
	st := studentStatus{StudentID: studentID, Status: status, Timestamp: time.Now()}
	if student, err := h.dir.Get(ctx, studentID); err == nil {
		st.FirstName = student.FirstName
		st.LastName = student.LastName
		st.Grade = student.Grade
		st.Avatar = student.Avatar
	}
	return st
}
