// Package api exposes HTTP handlers for the engagement service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/gymfit/internal/assistant"
	"example.com/gymfit/internal/auth"
	"example.com/gymfit/internal/booking"
	"example.com/gymfit/internal/domain"
	"example.com/gymfit/internal/insights"
	"example.com/gymfit/internal/middleware"
	"example.com/gymfit/internal/notify"
)

// progressMilestone is the weekly workout count that triggers a progress alert.
const progressMilestone = 5

// Store supplies the member history handlers read and write directly.
// Reservation and notification writes go through their services instead.
type Store interface {
	GetMember(ctx context.Context, id string) (*domain.Member, error)
	CreateWorkout(ctx context.Context, record domain.WorkoutRecord) (*domain.WorkoutRecord, error)
	CreateHealthSample(ctx context.Context, sample domain.HealthSample) (*domain.HealthSample, error)
	ListWorkoutsSince(ctx context.Context, memberID string, since time.Time) ([]domain.WorkoutRecord, error)
	ListHealthSamplesSince(ctx context.Context, memberID string, since time.Time) ([]domain.HealthSample, error)
	ListNotifications(ctx context.Context, memberID string, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, memberID, id string) error
}

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	store    Store
	booking  *booking.Coordinator
	dedup    *notify.Deduplicator
	renewal  *notify.RenewalChecker
	chat     *assistant.Service
	limiter  *middleware.PerMemberLimiter
	lookback time.Duration

	// now is the request clock. Tests override it for stable windows.
	now func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(store Store, coordinator *booking.Coordinator, dedup *notify.Deduplicator, renewal *notify.RenewalChecker, chat *assistant.Service, limiter *middleware.PerMemberLimiter, lookback time.Duration) *Handler {
	return &Handler{
		store:    store,
		booking:  coordinator,
		dedup:    dedup,
		renewal:  renewal,
		chat:     chat,
		limiter:  limiter,
		lookback: lookback,
		now:      time.Now,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/v1/health-samples", h.healthSamples)
	mux.HandleFunc("/v1/sessions/available", h.availableSessions)
	mux.HandleFunc("/v1/sessions/book", h.bookSession)
	mux.HandleFunc("/v1/sessions/cancel", h.cancelReservation)
	mux.HandleFunc("/v1/members/", h.memberSubresource)
	mux.HandleFunc("/v1/notifications", h.notifications)
	mux.HandleFunc("/v1/notifications/", h.notificationByID)
	mux.HandleFunc("/v1/admin/renewal-check", h.renewalCheck)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	var req LogWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if req.MemberID == "" {
		req.MemberID = claims.Subject
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if !h.canActFor(claims, req.MemberID) {
		writeError(w, http.StatusForbidden, "forbidden", "cannot log workouts for another member")
		return
	}

	member, err := h.store.GetMember(r.Context(), req.MemberID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if member == nil {
		writeDomainError(w, domain.ErrMemberNotFound)
		return
	}

	record, err := h.store.CreateWorkout(r.Context(), domain.WorkoutRecord{
		MemberID:    req.MemberID,
		Exercise:    strings.TrimSpace(req.Exercise),
		Date:        req.Date,
		DurationMin: req.DurationMin,
		Calories:    req.Calories,
		DistanceKm:  req.DistanceKm,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.maybeCelebrateProgress(r.Context(), req.MemberID)

	writeJSON(w, http.StatusCreated, toWorkoutView(*record))
}

// maybeCelebrateProgress raises a progress alert when the member reaches the
// weekly milestone. The deduplicator keeps it to one per cooldown window.
func (h *Handler) maybeCelebrateProgress(ctx context.Context, memberID string) {
	weekAgo := h.now().UTC().AddDate(0, 0, -7)
	records, err := h.store.ListWorkoutsSince(ctx, memberID, weekAgo)
	if err != nil || len(records) < progressMilestone {
		return
	}

	message := "Amazing! You've completed " + strconv.Itoa(progressMilestone) + " workouts this week. Keep up the great work!"
	if _, err := h.dedup.Notify(ctx, memberID, domain.KindProgress, message); err != nil {
		log.Printf("progress notification failed for member %s: %v", memberID, err)
	}
}

func (h *Handler) healthSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	var req LogHealthSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if req.MemberID == "" {
		req.MemberID = claims.Subject
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if !h.canActFor(claims, req.MemberID) {
		writeError(w, http.StatusForbidden, "forbidden", "cannot log health data for another member")
		return
	}

	sample, err := h.store.CreateHealthSample(r.Context(), domain.HealthSample{
		MemberID:    req.MemberID,
		Date:        req.Date,
		WeightKg:    req.WeightKg,
		HeightCm:    req.HeightCm,
		SleepHours:  req.SleepHours,
		WaterLiters: req.WaterLiters,
		Steps:       req.Steps,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHealthSampleView(*sample))
}

func (h *Handler) availableSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := auth.FromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	available, err := h.booking.ListAvailable(r.Context(), h.now().UTC())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]SessionAvailabilityView, 0, len(available))
	for _, avail := range available {
		items = append(items, SessionAvailabilityView{
			SessionID:   avail.Session.ID,
			TrainerID:   avail.Session.TrainerID,
			StartsAt:    avail.Session.StartsAt,
			DurationMin: avail.Session.DurationMin,
			Capacity:    avail.Session.Capacity,
			Details:     avail.Session.Details,
			SpotsLeft:   avail.Session.Capacity - avail.Booked,
		})
	}
	writeJSON(w, http.StatusOK, ListSessionsResponse{Items: items})
}

func (h *Handler) bookSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	var req BookSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if req.MemberID == "" {
		req.MemberID = claims.Subject
	}
	if !h.canActFor(claims, req.MemberID) {
		writeError(w, http.StatusForbidden, "forbidden", "cannot book for another member")
		return
	}

	reservation, err := h.booking.Book(r.Context(), req.MemberID, req.SessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Best effort; booking already committed.
	h.sendSessionReminder(r.Context(), *reservation)

	writeJSON(w, http.StatusCreated, ReservationView{
		ReservationID:   reservation.ID,
		MemberID:        reservation.MemberID,
		SessionID:       reservation.SessionID,
		SessionStartsAt: reservation.SessionStartsAt,
		SessionDetails:  reservation.SessionDetails,
		CreatedAt:       reservation.CreatedAt,
	})
}

func (h *Handler) sendSessionReminder(ctx context.Context, reservation domain.Reservation) {
	message := "Reminder: You have a session '" + reservation.SessionDetails + "' scheduled for " +
		reservation.SessionStartsAt.Format("2006-01-02") + " at " +
		reservation.SessionStartsAt.Format("15:04") + "."
	if _, err := h.dedup.Notify(ctx, reservation.MemberID, domain.KindSessionReminder, message); err != nil {
		log.Printf("session reminder failed for member %s: %v", reservation.MemberID, err)
	}
}

func (h *Handler) cancelReservation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	var req CancelReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if req.MemberID == "" {
		req.MemberID = claims.Subject
	}
	if !h.canActFor(claims, req.MemberID) {
		writeError(w, http.StatusForbidden, "forbidden", "cannot cancel for another member")
		return
	}

	if err := h.booking.Cancel(r.Context(), req.MemberID, req.ReservationID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func (h *Handler) memberSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/members/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not_found", "unknown member resource")
		return
	}
	memberID, resource := parts[0], parts[1]

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	switch {
	case resource == "stats" && r.Method == http.MethodGet:
		h.memberStats(w, r, claims, memberID)
	case resource == "recommendations" && r.Method == http.MethodGet:
		h.memberRecommendations(w, r, claims, memberID)
	case resource == "chat" && r.Method == http.MethodPost:
		h.memberChat(w, r, claims, memberID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown member resource")
	}
}

func (h *Handler) memberStats(w http.ResponseWriter, r *http.Request, claims *auth.Claims, memberID string) {
	if !h.canActFor(claims, memberID) {
		writeError(w, http.StatusForbidden, "forbidden", "cannot read another member's statistics")
		return
	}

	snapshot, _, err := h.loadInsights(r.Context(), memberID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsView(*snapshot))
}

func (h *Handler) memberRecommendations(w http.ResponseWriter, r *http.Request, claims *auth.Claims, memberID string) {
	if !h.canActFor(claims, memberID) {
		writeError(w, http.StatusForbidden, "forbidden", "cannot read another member's recommendations")
		return
	}

	snapshot, weekly, err := h.loadInsights(r.Context(), memberID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	recommendations := insights.Recommend(insights.Inputs{Snapshot: *snapshot, WeeklyWorkouts: weekly})
	items := make([]RecommendationView, 0, len(recommendations))
	for _, rec := range recommendations {
		items = append(items, RecommendationView{
			Kind:        string(rec.Kind),
			Message:     rec.Message,
			Exercise:    rec.Exercise,
			DurationMin: rec.DurationMin,
		})
	}
	writeJSON(w, http.StatusOK, ListRecommendationsResponse{Items: items})
}

// loadInsights aggregates the member's lookback window and counts the last
// seven days of activity separately.
func (h *Handler) loadInsights(ctx context.Context, memberID string) (*insights.Snapshot, int, error) {
	member, err := h.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, 0, err
	}
	if member == nil {
		return nil, 0, domain.ErrMemberNotFound
	}

	now := h.now().UTC()
	since := now.Add(-h.lookback)
	records, err := h.store.ListWorkoutsSince(ctx, memberID, since)
	if err != nil {
		return nil, 0, err
	}
	samples, err := h.store.ListHealthSamplesSince(ctx, memberID, since)
	if err != nil {
		return nil, 0, err
	}

	weekCutoff := now.AddDate(0, 0, -7)
	weekly := 0
	for _, rec := range records {
		if !rec.Date.Before(weekCutoff) {
			weekly++
		}
	}

	snapshot := insights.Aggregate(records, samples)
	return &snapshot, weekly, nil
}

func (h *Handler) memberChat(w http.ResponseWriter, r *http.Request, claims *auth.Claims, memberID string) {
	if !claims.Owns(memberID) {
		writeError(w, http.StatusForbidden, "forbidden", "chat is personal to the member")
		return
	}
	if !h.limiter.Allow(memberID) {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many chat requests, slow down")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	answer, err := h.chat.Chat(r.Context(), memberID, req.Question)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Answer: answer.Text, Fallback: answer.Fallback})
}

func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	list, err := h.store.ListNotifications(r.Context(), claims.Subject, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]NotificationView, 0, len(list))
	for _, n := range list {
		items = append(items, NotificationView{
			NotificationID: n.ID,
			Kind:           string(n.Kind),
			Message:        n.Message,
			Read:           n.Read,
			CreatedAt:      n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, ListNotificationsResponse{Items: items})
}

func (h *Handler) notificationByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/notifications/")
	id := strings.TrimSuffix(rest, "/read")
	if id == "" || id == rest || r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "not_found", "unknown notification resource")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	if err := h.store.MarkNotificationRead(r.Context(), claims.Subject, id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"read": true})
}

func (h *Handler) renewalCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasRole(auth.RoleAdmin) {
		writeError(w, http.StatusForbidden, "forbidden", "admin role required")
		return
	}

	created, err := h.renewal.Run(r.Context(), h.now().UTC())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"notifications_created": created})
}

// canActFor reports whether the caller may read or write the member's data.
// Trainers and admins may act for any member.
func (h *Handler) canActFor(claims *auth.Claims, memberID string) bool {
	return claims.Owns(memberID) || claims.HasRole(auth.RoleTrainer) || claims.HasRole(auth.RoleAdmin)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrMemberNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrReservationNotFound),
		errors.Is(err, domain.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrDuplicateBooking):
		writeError(w, http.StatusConflict, "duplicate_booking", err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "capacity_exceeded", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
