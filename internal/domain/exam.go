package domain

import "time"

// ExamStatus is the scheduler-visible exam state. Completed is terminal:
// once set, no reminder or completion side effect may fire again.
type ExamStatus string

const (
	ExamUnderway  ExamStatus = "underway"
	ExamCompleted ExamStatus = "completed"
)

type Exam struct {
	ExamID           string     `json:"id" dynamodbav:"exam_id"`
	Title            string     `json:"title" dynamodbav:"title"`
	Status           ExamStatus `json:"status" dynamodbav:"status"`
	ExamStart        time.Time  `json:"exam_start" dynamodbav:"exam_start"`
	ExamEnd          *time.Time `json:"exam_end" dynamodbav:"exam_end,omitempty"`
	IsEnd            bool       `json:"is_end" dynamodbav:"is_end"`
	GroupID          string     `json:"group_id" dynamodbav:"group_id"`
	LastReminderSent *time.Time `json:"last_reminder_sent" dynamodbav:"last_reminder_sent,omitempty"`
}
