package presence

import (
	"sync"
	"time"
)

// TestSession describes one student currently sitting a test.
type TestSession struct {
	StudentID string    `json:"student_id"`
	TestID    string    `json:"test_id"`
	TestTitle string    `json:"test_title"`
	StartedAt time.Time `json:"started_at"`
	HandleID  string    `json:"-"` // connection that opened the session
}

// Roster is the in-test working set: which students are mid-test right
// now. Like the registry it is purely in-memory and protected by a lock;
// callers must not hold it across store calls.
type Roster struct {
	mu       sync.RWMutex
	sessions map[string]TestSession
}

func NewRoster() *Roster {
	return &Roster{sessions: make(map[string]TestSession)}
}

// Start records that a student entered a test, replacing any previous
// session for the same student.
func (r *Roster) Start(s TestSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.StudentID] = s
}

// Finish removes the student's session and returns it, if one existed.
func (r *Roster) Finish(studentID string) (TestSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[studentID]
	if ok {
		delete(r.sessions, studentID)
	}
	return s, ok
}

// Get returns the student's current session without removing it.
func (r *Roster) Get(studentID string) (TestSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[studentID]
	return s, ok
}

// Snapshot returns a point-in-time copy of all in-test sessions.
func (r *Roster) Snapshot() []TestSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TestSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
