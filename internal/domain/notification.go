package domain

import "time"

// SubjectClass identifies which kind of account a notification or presence
// entry targets. The two classes live in separate tables and separate
// socket namespaces but share the same record shape.
type SubjectClass string

const (
	SubjectStudent SubjectClass = "student"
	SubjectMentor  SubjectClass = "mentor"
)

// NotificationStatus is the delivery status of a stored notification.
// A record starts pending and is flipped to viewed exactly once, by an
// explicit client acknowledgment.
type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusViewed  NotificationStatus = "viewed"
)

// NotificationKind is a closed rendering tag. It never affects dispatch.
type NotificationKind string

const (
	KindInfo          NotificationKind = "info"
	KindWarning       NotificationKind = "warning"
	KindSuccess       NotificationKind = "success"
	KindError         NotificationKind = "error"
	KindGradeUp       NotificationKind = "gradeUp"
	KindGradeDown     NotificationKind = "gradeDown"
	KindReminder      NotificationKind = "reminder"
	KindTestAssigned  NotificationKind = "testAssigned"
	KindTestCompleted NotificationKind = "testCompleted"
	KindExamAssigned  NotificationKind = "examAssigned"
	KindExamReminder  NotificationKind = "examReminder"
	KindExamEnded     NotificationKind = "examEnded"
	KindExamRejected  NotificationKind = "examRejected"
	KindMentorMessage NotificationKind = "mentorMessage"
)

// NotificationRetention is the store-level lifetime of a notification
// record. Expiry is enforced by the table's TTL attribute, not by any
// dispatch logic.
const NotificationRetention = 7 * 24 * time.Hour

type Notification struct {
	NotificationID string                 `json:"id" dynamodbav:"notification_id"`
	SubjectID      string                 `json:"subject_id" dynamodbav:"subject_id"`
	Title          string                 `json:"title" dynamodbav:"title"`
	Body           string                 `json:"body" dynamodbav:"body"`
	Kind           NotificationKind       `json:"kind" dynamodbav:"kind"`
	Status         NotificationStatus     `json:"status" dynamodbav:"status"`
	AdditionalData map[string]interface{} `json:"additional_data,omitempty" dynamodbav:"additional_data,omitempty"`
	CreatedAt      time.Time              `json:"created" dynamodbav:"created_at"`
	ExpiresAt      int64                  `json:"-" dynamodbav:"expires_at"` // epoch seconds, table TTL attribute
}

// NotificationPayload is what event producers hand to the dispatcher.
// The dispatcher fills in id, status and timestamps.
type NotificationPayload struct {
	Title          string                 `json:"title" validate:"required"`
	Body           string                 `json:"body" validate:"required"`
	Kind           NotificationKind       `json:"kind"`
	AdditionalData map[string]interface{} `json:"additional_data,omitempty"`
}
