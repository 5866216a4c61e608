// Package notify implements the notification dispatcher: durable write
// first, best-effort live push second. Storage is the source of truth; a
// subject who misses the live push receives the record on reconnect replay.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/orbitest-backend/internal/domain"
	"github.com/orbitest-backend/internal/pkg/id"
	"github.com/orbitest-backend/internal/pkg/validate"
	"github.com/orbitest-backend/internal/presence"
)

// Store is the per-subject-class notification store adapter. One instance
// exists per class (student, mentor); both share the record shape.
type Store interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListBySubject(ctx context.Context, subjectID string, status domain.NotificationStatus, limit int32) ([]domain.Notification, error)
	CountBySubject(ctx context.Context, subjectID string, status domain.NotificationStatus) (int, error)
	MarkViewed(ctx context.Context, notificationID string) (*domain.Notification, error)
	MarkAllViewed(ctx context.Context, subjectID string) (int, error)
	DeleteViewed(ctx context.Context, subjectID string) (int, error)
}

// StudentDirectory resolves a student's owning mentor.
type StudentDirectory interface {
	Get(ctx context.Context, studentID string) (*domain.Student, error)
}

// MentorDirectory lists mentors for platform-wide announcements.
type MentorDirectory interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// EventNotification is the outbound event name for a pushed record.
const EventNotification = "notification"

type Service interface {
	// Notify persists a notification for the subject and, when the subject
	// holds a live connection, pushes the persisted record over it. The
	// record is returned whether or not the push happened; a persistence
	// failure aborts the call before any delivery attempt.
	Notify(ctx context.Context, class domain.SubjectClass, subjectID string, p domain.NotificationPayload) (*domain.Notification, error)
	// NotifyStudentMentor routes a notification to the mentor who owns the
	// student. Returns nil without error when the student has no mentor.
	NotifyStudentMentor(ctx context.Context, studentID string, p domain.NotificationPayload) (*domain.Notification, error)
	// NotifyAllMentors fans an announcement out to every mentor,
	// isolating per-mentor failures. Returns how many dispatches succeeded.
	NotifyAllMentors(ctx context.Context, p domain.NotificationPayload) (int, error)
	// ReplayPending pushes all pending notifications for the subject over
	// the given connection, newest first, without touching their status.
	ReplayPending(ctx context.Context, class domain.SubjectClass, subjectID string, conn presence.Conn) (int, error)

	ListBySubject(ctx context.Context, class domain.SubjectClass, subjectID string, status domain.NotificationStatus, limit int32) ([]domain.Notification, error)
	CountPending(ctx context.Context, class domain.SubjectClass, subjectID string) (int, error)
	Get(ctx context.Context, class domain.SubjectClass, notificationID, subjectID string) (*domain.Notification, error)
	MarkViewed(ctx context.Context, class domain.SubjectClass, notificationID, subjectID string) (*domain.Notification, error)
	MarkAllViewed(ctx context.Context, class domain.SubjectClass, subjectID string) (int, error)
	DeleteViewed(ctx context.Context, class domain.SubjectClass, subjectID string) (int, error)
}

type service struct {
	studentStore Store
	mentorStore  Store
	studentReg   *presence.Registry
	mentorReg    *presence.Registry
	students     StudentDirectory
	mentors      MentorDirectory
	now          func() time.Time
}

// Deps wires the dispatcher. Now is optional and defaults to time.Now.
type Deps struct {
	StudentStore Store
	MentorStore  Store
	StudentReg   *presence.Registry
	MentorReg    *presence.Registry
	Students     StudentDirectory
	Mentors      MentorDirectory
	Now          func() time.Time
}

func NewService(d Deps) Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		studentStore: d.StudentStore,
		mentorStore:  d.MentorStore,
		studentReg:   d.StudentReg,
		mentorReg:    d.MentorReg,
		students:     d.Students,
		mentors:      d.Mentors,
		now:          now,
	}
}

// forClass picks the store/registry pair for a subject class.
func (s *service) forClass(class domain.SubjectClass) (Store, *presence.Registry, error) {
	switch class {
	case domain.SubjectStudent:
		return s.studentStore, s.studentReg, nil
	case domain.SubjectMentor:
		return s.mentorStore, s.mentorReg, nil
	default:
		return nil, nil, fmt.Errorf("unknown subject class %q: %w", class, domain.ErrBadRequest)
	}
}

func (s *service) Notify(ctx context.Context, class domain.SubjectClass, subjectID string, p domain.NotificationPayload) (*domain.Notification, error) {
	store, reg, err := s.forClass(class)
	if err != nil {
		return nil, err
	}
	if subjectID == "" {
		return nil, fmt.Errorf("missing subject id: %w", domain.ErrBadRequest)
	}
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	kind := p.Kind
	if kind == "" {
		kind = domain.KindInfo
	}
	created := s.now()
	n := &domain.Notification{
		NotificationID: id.New(),
		SubjectID:      subjectID,
		Title:          p.Title,
		Body:           p.Body,
		Kind:           kind,
		Status:         domain.StatusPending,
		AdditionalData: p.AdditionalData,
		CreatedAt:      created,
		ExpiresAt:      created.Add(domain.NotificationRetention).Unix(),
	}

	// Durability before delivery: the record must be stored before any
	// push. A socket-only notification would be lost on reconnect.
	if err := store.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	if conn, ok := reg.Lookup(subjectID); ok {
		if err := conn.SendJSON(presence.Event{Event: EventNotification, Data: n}); err != nil {
			// Best effort: the record stays pending and is replayed on
			// the subject's next registration.
			log.Printf("WARN: live push to %s %s failed: %v", class, subjectID, err)
		}
	}
	return n, nil
}

func (s *service) NotifyStudentMentor(ctx context.Context, studentID string, p domain.NotificationPayload) (*domain.Notification, error) {
	student, err := s.students.Get(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("resolve student %s: %w", studentID, err)
	}
	if student.MentorID == "" {
		log.Printf("WARN: student %s has no assigned mentor, dropping mentor notification", studentID)
		return nil, nil
	}
	// Augment a copy so the caller's map stays untouched.
	data := make(map[string]interface{}, len(p.AdditionalData)+1)
	for k, v := range p.AdditionalData {
		data[k] = v
	}
	data["studentId"] = studentID
	p.AdditionalData = data
	return s.Notify(ctx, domain.SubjectMentor, student.MentorID, p)
}

func (s *service) NotifyAllMentors(ctx context.Context, p domain.NotificationPayload) (int, error) {
	ids, err := s.mentors.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list mentors: %w", err)
	}
	sent := 0
	for _, mentorID := range ids {
		if _, err := s.Notify(ctx, domain.SubjectMentor, mentorID, p); err != nil {
			log.Printf("ERROR: announce to mentor %s: %v", mentorID, err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *service) ReplayPending(ctx context.Context, class domain.SubjectClass, subjectID string, conn presence.Conn) (int, error) {
	store, _, err := s.forClass(class)
	if err != nil {
		return 0, err
	}
	pending, err := store.ListBySubject(ctx, subjectID, domain.StatusPending, 0)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for i := range pending {
		if err := conn.SendJSON(presence.Event{Event: EventNotification, Data: &pending[i]}); err != nil {
			// Replay is a catch-up burst: a failed push leaves the record
			// pending for the next reconnect.
			log.Printf("WARN: replay to %s %s failed: %v", class, subjectID, err)
			continue
		}
		delivered++
	}
	return delivered, nil
}

func (s *service) ListBySubject(ctx context.Context, class domain.SubjectClass, subjectID string, status domain.NotificationStatus, limit int32) ([]domain.Notification, error) {
	store, _, err := s.forClass(class)
	if err != nil {
		return nil, err
	}
	return store.ListBySubject(ctx, subjectID, status, limit)
}

func (s *service) CountPending(ctx context.Context, class domain.SubjectClass, subjectID string) (int, error) {
	store, _, err := s.forClass(class)
	if err != nil {
		return 0, err
	}
	return store.CountBySubject(ctx, subjectID, domain.StatusPending)
}

func (s *service) Get(ctx context.Context, class domain.SubjectClass, notificationID, subjectID string) (*domain.Notification, error) {
	store, _, err := s.forClass(class)
	if err != nil {
		return nil, err
	}
	n, err := store.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.SubjectID != subjectID {
		return nil, fmt.Errorf("notification belongs to another subject: %w", domain.ErrForbidden)
	}
	return n, nil
}

func (s *service) MarkViewed(ctx context.Context, class domain.SubjectClass, notificationID, subjectID string) (*domain.Notification, error) {
	// Ownership check before the blind status overwrite.
	if _, err := s.Get(ctx, class, notificationID, subjectID); err != nil {
		return nil, err
	}
	store, _, _ := s.forClass(class)
	return store.MarkViewed(ctx, notificationID)
}

func (s *service) MarkAllViewed(ctx context.Context, class domain.SubjectClass, subjectID string) (int, error) {
	store, _, err := s.forClass(class)
	if err != nil {
		return 0, err
	}
	return store.MarkAllViewed(ctx, subjectID)
}

func (s *service) DeleteViewed(ctx context.Context, class domain.SubjectClass, subjectID string) (int, error) {
	store, _, err := s.forClass(class)
	if err != nil {
		return 0, err
	}
	return store.DeleteViewed(ctx, subjectID)
}
