package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orbitest-backend/internal/domain"
	"github.com/orbitest-backend/internal/presence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockStore) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) ListBySubject(ctx context.Context, subjectID string, status domain.NotificationStatus, limit int32) ([]domain.Notification, error) {
	args := m.Called(ctx, subjectID, status, limit)
	if ns, _ := args.Get(0).([]domain.Notification); ns != nil {
		return ns, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) CountBySubject(ctx context.Context, subjectID string, status domain.NotificationStatus) (int, error) {
	args := m.Called(ctx, subjectID, status)
	return args.Int(0), args.Error(1)
}
func (m *mockStore) MarkViewed(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) MarkAllViewed(ctx context.Context, subjectID string) (int, error) {
	args := m.Called(ctx, subjectID)
	return args.Int(0), args.Error(1)
}
func (m *mockStore) DeleteViewed(ctx context.Context, subjectID string) (int, error) {
	args := m.Called(ctx, subjectID)
	return args.Int(0), args.Error(1)
}

type mockStudentDir struct{ mock.Mock }

func (m *mockStudentDir) Get(ctx context.Context, studentID string) (*domain.Student, error) {
	args := m.Called(ctx, studentID)
	if s, _ := args.Get(0).(*domain.Student); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMentorDir struct{ mock.Mock }

func (m *mockMentorDir) ListIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if ids, _ := args.Get(0).([]string); ids != nil {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

type captureConn struct {
	id   string
	sent []presence.Event
	fail bool
}

func (c *captureConn) ID() string { return c.id }
func (c *captureConn) SendJSON(v interface{}) error {
	if c.fail {
		return errors.New("socket gone")
	}
	c.sent = append(c.sent, v.(presence.Event))
	return nil
}
func (c *captureConn) Close() error { return nil }

// --- helpers ---

type fixture struct {
	studentStore *mockStore
	mentorStore  *mockStore
	studentReg   *presence.Registry
	mentorReg    *presence.Registry
	students     *mockStudentDir
	mentors      *mockMentorDir
	svc          Service
}

func newFixture() *fixture {
	f := &fixture{
		studentStore: &mockStore{},
		mentorStore:  &mockStore{},
		studentReg:   presence.NewRegistry(),
		mentorReg:    presence.NewRegistry(),
		students:     &mockStudentDir{},
		mentors:      &mockMentorDir{},
	}
	f.svc = NewService(Deps{
		StudentStore: f.studentStore,
		MentorStore:  f.mentorStore,
		StudentReg:   f.studentReg,
		MentorReg:    f.mentorReg,
		Students:     f.students,
		Mentors:      f.mentors,
		Now:          func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) },
	})
	return f
}

func payload() domain.NotificationPayload {
	return domain.NotificationPayload{Title: "New result", Body: "Your exam was graded"}
}

// --- Notify ---

func TestNotify_OfflineSubject_PersistsOnly(t *testing.T) {
	f := newFixture()
	f.studentStore.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)

	n, err := f.svc.Notify(context.Background(), domain.SubjectStudent, "s1", payload())

	require.NoError(t, err)
	assert.NotEmpty(t, n.NotificationID)
	assert.Equal(t, domain.StatusPending, n.Status)
	assert.Equal(t, domain.KindInfo, n.Kind)
	assert.Equal(t, "s1", n.SubjectID)
	assert.Greater(t, n.ExpiresAt, n.CreatedAt.Unix())
	f.studentStore.AssertCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestNotify_OnlineSubject_PushesStoredRecord(t *testing.T) {
	f := newFixture()
	conn := &captureConn{id: "h1"}
	f.studentReg.Register("s1", conn)
	f.studentStore.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)

	n, err := f.svc.Notify(context.Background(), domain.SubjectStudent, "s1", payload())

	require.NoError(t, err)
	require.Len(t, conn.sent, 1)
	assert.Equal(t, EventNotification, conn.sent[0].Event)
	pushed := conn.sent[0].Data.(*domain.Notification)
	assert.Equal(t, n.NotificationID, pushed.NotificationID)
}

func TestNotify_StoreFailure_NoPush(t *testing.T) {
	f := newFixture()
	conn := &captureConn{id: "h1"}
	f.studentReg.Register("s1", conn)
	f.studentStore.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))

	_, err := f.svc.Notify(context.Background(), domain.SubjectStudent, "s1", payload())

	require.Error(t, err)
	assert.Empty(t, conn.sent)
}

func TestNotify_PushFailure_StillReturnsRecord(t *testing.T) {
	f := newFixture()
	f.studentReg.Register("s1", &captureConn{id: "h1", fail: true})
	f.studentStore.On("Put", mock.Anything, mock.Anything).Return(nil)

	n, err := f.svc.Notify(context.Background(), domain.SubjectStudent, "s1", payload())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, n.Status)
}

func TestNotify_EmptySubjectID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Notify(context.Background(), domain.SubjectStudent, "", payload())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestNotify_EmptyTitle_Rejected(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Notify(context.Background(), domain.SubjectStudent, "s1", domain.NotificationPayload{Body: "no title"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	f.studentStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestNotify_UnknownClass(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Notify(context.Background(), domain.SubjectClass("admin"), "x", payload())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

// --- NotifyStudentMentor ---

func TestNotifyStudentMentor_RoutesToOwningMentor(t *testing.T) {
	f := newFixture()
	f.students.On("Get", mock.Anything, "s1").Return(&domain.Student{StudentID: "s1", MentorID: "m1"}, nil)
	f.mentorStore.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)

	n, err := f.svc.NotifyStudentMentor(context.Background(), "s1", payload())

	require.NoError(t, err)
	assert.Equal(t, "m1", n.SubjectID)
	assert.Equal(t, "s1", n.AdditionalData["studentId"])
	f.studentStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestNotifyStudentMentor_DoesNotMutateCallerPayload(t *testing.T) {
	f := newFixture()
	f.students.On("Get", mock.Anything, "s1").Return(&domain.Student{StudentID: "s1", MentorID: "m1"}, nil)
	f.mentorStore.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)

	p := payload()
	p.AdditionalData = map[string]interface{}{"testId": "t1"}

	n, err := f.svc.NotifyStudentMentor(context.Background(), "s1", p)

	require.NoError(t, err)
	assert.Equal(t, "s1", n.AdditionalData["studentId"])
	// The caller's map must stay as given.
	assert.Equal(t, map[string]interface{}{"testId": "t1"}, p.AdditionalData)
}

func TestNotifyStudentMentor_NoMentor_Drops(t *testing.T) {
	f := newFixture()
	f.students.On("Get", mock.Anything, "s1").Return(&domain.Student{StudentID: "s1"}, nil)

	n, err := f.svc.NotifyStudentMentor(context.Background(), "s1", payload())

	require.NoError(t, err)
	assert.Nil(t, n)
	f.mentorStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestNotifyStudentMentor_UnknownStudent(t *testing.T) {
	f := newFixture()
	f.students.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	_, err := f.svc.NotifyStudentMentor(context.Background(), "ghost", payload())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// --- NotifyAllMentors ---

func TestNotifyAllMentors_IsolatesFailures(t *testing.T) {
	f := newFixture()
	f.mentors.On("ListIDs", mock.Anything).Return([]string{"m1", "m2", "m3"}, nil)
	f.mentorStore.On("Put", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.SubjectID == "m2"
	})).Return(errors.New("dynamo down"))
	f.mentorStore.On("Put", mock.Anything, mock.Anything).Return(nil)

	sent, err := f.svc.NotifyAllMentors(context.Background(), payload())

	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}

// --- ReplayPending ---

func TestReplayPending_PushesNewestFirstWithoutStatusChange(t *testing.T) {
	f := newFixture()
	conn := &captureConn{id: "h1"}
	// Store returns newest first; replay must preserve that order.
	pending := []domain.Notification{
		{NotificationID: "n3", SubjectID: "s1", Status: domain.StatusPending},
		{NotificationID: "n2", SubjectID: "s1", Status: domain.StatusPending},
		{NotificationID: "n1", SubjectID: "s1", Status: domain.StatusPending},
	}
	f.studentStore.On("ListBySubject", mock.Anything, "s1", domain.StatusPending, int32(0)).Return(pending, nil)

	delivered, err := f.svc.ReplayPending(context.Background(), domain.SubjectStudent, "s1", conn)

	require.NoError(t, err)
	assert.Equal(t, 3, delivered)
	require.Len(t, conn.sent, 3)
	assert.Equal(t, "n3", conn.sent[0].Data.(*domain.Notification).NotificationID)
	assert.Equal(t, "n1", conn.sent[2].Data.(*domain.Notification).NotificationID)
	// Replay never acknowledges: no viewed transitions happen here.
	f.studentStore.AssertNotCalled(t, "MarkViewed", mock.Anything, mock.Anything)
	f.studentStore.AssertNotCalled(t, "MarkAllViewed", mock.Anything, mock.Anything)
}

func TestReplayPending_NothingPending(t *testing.T) {
	f := newFixture()
	f.studentStore.On("ListBySubject", mock.Anything, "s1", domain.StatusPending, int32(0)).Return([]domain.Notification{}, nil)

	delivered, err := f.svc.ReplayPending(context.Background(), domain.SubjectStudent, "s1", &captureConn{id: "h1"})

	require.NoError(t, err)
	assert.Zero(t, delivered)
}

// --- read/ack surface ---

func TestGet_OwnershipEnforced(t *testing.T) {
	f := newFixture()
	f.studentStore.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", SubjectID: "other"}, nil)

	_, err := f.svc.Get(context.Background(), domain.SubjectStudent, "n1", "s1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestMarkViewed_OwnershipCheckedBeforeWrite(t *testing.T) {
	f := newFixture()
	f.mentorStore.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", SubjectID: "other"}, nil)

	_, err := f.svc.MarkViewed(context.Background(), domain.SubjectMentor, "n1", "m1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	f.mentorStore.AssertNotCalled(t, "MarkViewed", mock.Anything, mock.Anything)
}

func TestMarkViewed_Owned(t *testing.T) {
	f := newFixture()
	owned := &domain.Notification{NotificationID: "n1", SubjectID: "s1", Status: domain.StatusPending}
	viewed := &domain.Notification{NotificationID: "n1", SubjectID: "s1", Status: domain.StatusViewed}
	f.studentStore.On("Get", mock.Anything, "n1").Return(owned, nil)
	f.studentStore.On("MarkViewed", mock.Anything, "n1").Return(viewed, nil)

	n, err := f.svc.MarkViewed(context.Background(), domain.SubjectStudent, "n1", "s1")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusViewed, n.Status)
}

func TestMarkAllViewed_Counts(t *testing.T) {
	f := newFixture()
	f.studentStore.On("MarkAllViewed", mock.Anything, "s1").Return(4, nil)

	count, err := f.svc.MarkAllViewed(context.Background(), domain.SubjectStudent, "s1")

	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestMarkAllViewed_NothingPending_Succeeds(t *testing.T) {
	f := newFixture()
	f.studentStore.On("MarkAllViewed", mock.Anything, "s1").Return(0, nil)

	count, err := f.svc.MarkAllViewed(context.Background(), domain.SubjectStudent, "s1")

	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCountPending(t *testing.T) {
	f := newFixture()
	f.mentorStore.On("CountBySubject", mock.Anything, "m1", domain.StatusPending).Return(7, nil)

	count, err := f.svc.CountPending(context.Background(), domain.SubjectMentor, "m1")

	require.NoError(t, err)
	assert.Equal(t, 7, count)
}
