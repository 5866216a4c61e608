package ws

import (
	"encoding/json"
	"time"
)

// Client-to-server event names. The set is closed: anything else is
// rejected with an error event and the connection stays open.
const (
	eventRegister      = "register"
	eventMarkViewed    = "markAsViewed"
	eventMarkViewedAll = "markAsViewedAll"
	eventStartTest     = "startTest"
	eventFinishTest    = "finishTest"
)

// Server-to-client event names.
const (
	eventError               = "error"
	eventStudentStatus       = "studentStatus"
	eventOnlineStudents      = "onlineStudents"
	eventStudentsInTest      = "studentsInTest"
	eventStudentStartedTest  = "studentStartedTest"
	eventStudentFinishedTest = "studentFinishedTest"
	eventStudentLeftTest     = "studentLeftTest"
)

// inbound is the envelope for every client message. Data stays raw until
// the event name selects the payload shape.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type registerPayload struct {
	ID string `json:"id"`
}

type markViewedPayload struct {
	NotificationID string `json:"notificationId"`
}

type startTestPayload struct {
	TestID    string `json:"testId"`
	TestTitle string `json:"testTitle"`
}

type finishTestPayload struct {
	TestID string  `json:"testId"`
	Score  float64 `json:"score"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Presence states carried by studentStatus events.
const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// studentStatus announces a presence change to the mentor namespace,
// enriched with directory fields when the lookup succeeds.
type studentStatus struct {
	StudentID string    `json:"studentId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Grade     string    `json:"grade,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
}

// testActivity is shared by the started/finished/left events. Score is
// set only on finish; Reason only on a disconnect-driven eviction.
type testActivity struct {
	StudentID string   `json:"studentId"`
	TestID    string   `json:"testId"`
	TestTitle string   `json:"testTitle,omitempty"`
	Score     *float64 `json:"score,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}
