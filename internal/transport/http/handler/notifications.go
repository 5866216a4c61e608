package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/orbitest-backend/internal/application/notify"
	"github.com/orbitest-backend/internal/domain"
	"github.com/orbitest-backend/internal/transport/http/middleware"
)

// NotificationHandler serves one subject class's notification REST
// surface. Two instances are mounted: students under /notifications,
// mentors under /mentor-notifications.
type NotificationHandler struct {
	svc   notify.Service
	class domain.SubjectClass
}

func NewNotificationHandler(svc notify.Service, class domain.SubjectClass) *NotificationHandler {
	return &NotificationHandler{svc: svc, class: class}
}

func (h *NotificationHandler) subject(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return claims.SubjectID, true
}

// ListMine returns the caller's notifications, optionally filtered by
// ?status=pending|viewed and capped by ?limit.
func (h *NotificationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}
	var status domain.NotificationStatus
	switch q := r.URL.Query().Get("status"); q {
	case "":
	case string(domain.StatusPending), string(domain.StatusViewed):
		status = domain.NotificationStatus(q)
	default:
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}
	var limit int32
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = int32(n)
	}

	notifications, err := h.svc.ListBySubject(r.Context(), h.class, subjectID, status, limit)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}
	count, err := h.svc.CountPending(r.Context(), h.class, subjectID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Count: count})
}

func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}
	n, err := h.svc.Get(r.Context(), h.class, chi.URLParam(r, "id"), subjectID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *NotificationHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}
	n, err := h.svc.MarkViewed(r.Context(), h.class, chi.URLParam(r, "id"), subjectID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllViewed(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}
	count, err := h.svc.MarkAllViewed(r.Context(), h.class, subjectID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Count: count})
}

func (h *NotificationHandler) DeleteViewed(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}
	count, err := h.svc.DeleteViewed(r.Context(), h.class, subjectID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Count: count})
}
