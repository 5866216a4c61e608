// Package scheduler implements the recurring exam-deadline scan: reminders
// while an exam approaches its deadline, a terminal completion transition
// once the deadline passes, and daily housekeeping of the scheduler's own
// job ledger.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/orbitest-backend/internal/domain"
	"github.com/orbitest-backend/internal/infrastructure/smtp"
	"github.com/orbitest-backend/internal/infrastructure/sns"
	"github.com/orbitest-backend/internal/infrastructure/telegram"
	"github.com/orbitest-backend/internal/pkg/id"
)

// ExamStore is the exam read/write model the scheduler consumes.
type ExamStore interface {
	ListOpenWithDeadline(ctx context.Context) ([]domain.Exam, error)
	Update(ctx context.Context, examID string, updates map[string]interface{}) error
}

// GroupStore resolves an exam's group.
type GroupStore interface {
	Get(ctx context.Context, groupID string) (*domain.Group, error)
}

// MentorStore resolves a mentor for the email copy of completion notices.
type MentorStore interface {
	Get(ctx context.Context, mentorID string) (*domain.Mentor, error)
}

// Dispatcher is the slice of the notification service the scheduler uses.
type Dispatcher interface {
	Notify(ctx context.Context, class domain.SubjectClass, subjectID string, p domain.NotificationPayload) (*domain.Notification, error)
}

// Ledger records tick bookkeeping entries.
type Ledger interface {
	Put(ctx context.Context, run *domain.JobRun) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

const checkJobName = "check-active-exams"

// Deps wires the scheduler. Chat, SMS, Mailer and Ledger are optional
// sinks; a nil value disables that channel. Now defaults to time.Now.
type Deps struct {
	Exams      ExamStore
	Groups     GroupStore
	Mentors    MentorStore
	Dispatcher Dispatcher
	Chat       telegram.GroupMessenger
	SMS        sns.SMSSender
	Mailer     smtp.Mailer
	Ledger     Ledger

	// ReminderThreshold is how close to the deadline reminders arm;
	// ReminderInterval is how often they repeat once armed. They default
	// to the same value but are independently tunable.
	ReminderThreshold time.Duration
	ReminderInterval  time.Duration
	LedgerRetention   time.Duration

	Now func() time.Time
}

type Scheduler struct {
	deps     Deps
	now      func() time.Time
	inFlight atomic.Bool
}

func New(d Deps) *Scheduler {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{deps: d, now: now}
}

// Run starts the periodic scan and the daily ledger cleanup, blocking
// until ctx is cancelled. A tick already in flight is never interrupted;
// cancellation only stops new ticks from starting.
func (s *Scheduler) Run(ctx context.Context, tick, cleanupTick time.Duration) {
	log.Printf("exam scheduler started (scan every %v, cleanup every %v)", tick, cleanupTick)
	scanTicker := time.NewTicker(tick)
	cleanupTicker := time.NewTicker(cleanupTick)
	defer scanTicker.Stop()
	defer cleanupTicker.Stop()

	// First scan immediately so a restart doesn't delay overdue
	// completions by a full period.
	s.CheckExams(ctx)

	for {
		select {
		case <-scanTicker.C:
			s.CheckExams(ctx)
		case <-cleanupTicker.C:
			s.CleanupLedger(ctx)
		case <-ctx.Done():
			log.Println("exam scheduler stopped")
			return
		}
	}
}

// CheckExams runs one scan over all open exams with a deadline. Runs are
// serialized by an in-flight guard: if the previous scan is still running,
// this one is skipped rather than overlapped. Per-exam failures are
// isolated — one broken exam never aborts the rest of the scan.
func (s *Scheduler) CheckExams(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		log.Println("WARN: exam scan still in flight, skipping tick")
		return
	}
	defer s.inFlight.Store(false)

	started := s.now()
	exams, err := s.deps.Exams.ListOpenWithDeadline(ctx)
	if err != nil {
		log.Printf("ERROR: list open exams: %v", err)
		return
	}

	failed := 0
	for i := range exams {
		if err := s.processExam(ctx, &exams[i]); err != nil {
			log.Printf("ERROR: process exam %s: %v", exams[i].ExamID, err)
			failed++
		}
	}
	s.recordRun(ctx, started, len(exams), failed)
}

func (s *Scheduler) processExam(ctx context.Context, exam *domain.Exam) error {
	if exam.ExamEnd == nil {
		return nil
	}
	remaining := exam.ExamEnd.Sub(s.now())
	if remaining <= 0 {
		return s.completeExam(ctx, exam)
	}
	if remaining <= s.deps.ReminderThreshold && s.reminderDue(exam) {
		return s.sendReminder(ctx, exam, remaining)
	}
	return nil
}

// reminderDue reports whether a reminder should fire: never sent before, or
// the repeat interval has elapsed since the last one.
func (s *Scheduler) reminderDue(exam *domain.Exam) bool {
	if exam.LastReminderSent == nil {
		return true
	}
	return s.now().Sub(*exam.LastReminderSent) >= s.deps.ReminderInterval
}

// completeExam performs the terminal transition: notify, then flip status.
// The notification runs before the flip so a crash between the two leaves
// the exam open for a retried (duplicate) notice rather than silently
// completed — and the flip itself is idempotent.
func (s *Scheduler) completeExam(ctx context.Context, exam *domain.Exam) error {
	group, err := s.deps.Groups.Get(ctx, exam.GroupID)
	if err != nil {
		log.Printf("WARN: group %s not found for exam %s: %v", exam.GroupID, exam.ExamID, err)
	} else {
		s.sendCompletionNotices(ctx, exam, group)
	}

	if err := s.deps.Exams.Update(ctx, exam.ExamID, map[string]interface{}{
		"status": string(domain.ExamCompleted),
		"is_end": true,
	}); err != nil {
		return fmt.Errorf("mark exam completed: %w", err)
	}
	log.Printf("exam %s (%s) marked completed", exam.ExamID, exam.Title)
	return nil
}

// sendCompletionNotices fans the completion out to every configured sink.
// All sinks are best effort here: the status flip must happen regardless.
func (s *Scheduler) sendCompletionNotices(ctx context.Context, exam *domain.Exam, group *domain.Group) {
	if _, err := s.deps.Dispatcher.Notify(ctx, domain.SubjectMentor, group.MentorID, domain.NotificationPayload{
		Title: fmt.Sprintf("Exam %q has ended", exam.Title),
		Body:  fmt.Sprintf("Exam %q for group %q has ended. Review the submissions and publish the results.", exam.Title, group.Name),
		Kind:  domain.KindExamEnded,
		AdditionalData: map[string]interface{}{
			"examId":  exam.ExamID,
			"groupId": group.GroupID,
		},
	}); err != nil {
		log.Printf("ERROR: completion notification for exam %s: %v", exam.ExamID, err)
	}

	if s.deps.Mailer != nil && s.deps.Mentors != nil {
		if mentor, err := s.deps.Mentors.Get(ctx, group.MentorID); err == nil && mentor.Email != "" {
			subject := fmt.Sprintf("Exam %q has ended", exam.Title)
			body := fmt.Sprintf("Exam %q for group %q ended at %s.", exam.Title, group.Name, exam.ExamEnd.Format(time.RFC1123))
			if err := s.deps.Mailer.SendEmail(mentor.Email, subject, body); err != nil {
				log.Printf("WARN: completion email to mentor %s: %v", group.MentorID, err)
			}
		}
	}

	if s.deps.Chat != nil {
		text := fmt.Sprintf("*Exam finished!*\n\n%s\nEnded: %s\n\nResults will be available shortly.",
			exam.Title, exam.ExamEnd.Format("02.01.2006 15:04"))
		for _, chatID := range []string{group.TelegramChatID, group.ParentsChatID} {
			if chatID == "" {
				continue
			}
			if err := s.deps.Chat.SendGroupMessage(ctx, chatID, text); err != nil {
				log.Printf("WARN: completion chat message to %s: %v", chatID, err)
			}
		}
	}

	if s.deps.SMS != nil {
		msg := fmt.Sprintf("Orbitest: exam %q for group %q has finished. Results will follow.", exam.Title, group.Name)
		for _, phone := range group.ParentPhones {
			if err := s.deps.SMS.SendSMS(ctx, phone, msg); err != nil {
				log.Printf("WARN: completion SMS to %s: %v", phone, err)
			}
		}
	}
}

// sendReminder dispatches a deadline reminder and advances
// last_reminder_sent only after the dispatch succeeded, so a failed
// reminder is retried on the next tick.
func (s *Scheduler) sendReminder(ctx context.Context, exam *domain.Exam, remaining time.Duration) error {
	group, err := s.deps.Groups.Get(ctx, exam.GroupID)
	if err != nil {
		return fmt.Errorf("resolve group %s: %w", exam.GroupID, err)
	}

	left := formatRemaining(remaining)
	if _, err := s.deps.Dispatcher.Notify(ctx, domain.SubjectMentor, group.MentorID, domain.NotificationPayload{
		Title: fmt.Sprintf("Reminder: exam %q", exam.Title),
		Body:  fmt.Sprintf("Exam %q ends in %s. Group: %s", exam.Title, left, group.Name),
		Kind:  domain.KindReminder,
		AdditionalData: map[string]interface{}{
			"examId":        exam.ExamID,
			"groupId":       group.GroupID,
			"timeRemaining": left,
		},
	}); err != nil {
		return fmt.Errorf("reminder notification: %w", err)
	}

	if s.deps.Chat != nil && group.TelegramChatID != "" {
		text := fmt.Sprintf("*Exam reminder!*\n\n%s\nTime left: %s\n\nFinish your exam on time!", exam.Title, left)
		if err := s.deps.Chat.SendGroupMessage(ctx, group.TelegramChatID, text); err != nil {
			return fmt.Errorf("reminder chat message: %w", err)
		}
	}

	if err := s.deps.Exams.Update(ctx, exam.ExamID, map[string]interface{}{
		"last_reminder_sent": s.now(),
	}); err != nil {
		return fmt.Errorf("advance reminder timestamp: %w", err)
	}
	log.Printf("reminder sent for exam %s (%s left)", exam.ExamID, left)
	return nil
}

// CleanupLedger purges bookkeeping entries older than the retention window.
func (s *Scheduler) CleanupLedger(ctx context.Context) {
	if s.deps.Ledger == nil {
		return
	}
	cutoff := s.now().Add(-s.deps.LedgerRetention)
	deleted, err := s.deps.Ledger.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("ERROR: ledger cleanup: %v", err)
		return
	}
	log.Printf("ledger cleanup removed %d entries", deleted)
}

func (s *Scheduler) recordRun(ctx context.Context, started time.Time, processed, failed int) {
	if s.deps.Ledger == nil {
		return
	}
	run := &domain.JobRun{
		JobRunID:   id.New(),
		JobName:    checkJobName,
		StartedAt:  started,
		FinishedAt: s.now(),
		Processed:  processed,
		Failed:     failed,
	}
	if err := s.deps.Ledger.Put(ctx, run); err != nil {
		log.Printf("WARN: record job run: %v", err)
	}
}

// formatRemaining renders a duration as "2h 15m" / "40m" for messages.
func formatRemaining(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
