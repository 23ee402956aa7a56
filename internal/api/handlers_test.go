package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/gymfit/internal/assistant"
	"example.com/gymfit/internal/auth"
	"example.com/gymfit/internal/booking"
	"example.com/gymfit/internal/domain"
	"example.com/gymfit/internal/middleware"
	"example.com/gymfit/internal/notify"
	"example.com/gymfit/internal/persistence/memory"
)

var fixedNow = time.Date(2026, time.August, 10, 9, 0, 0, 0, time.UTC)

type stubChat struct {
	text string
	err  error
}

func (c *stubChat) Complete(ctx context.Context, system, user string) (string, error) {
	return c.text, c.err
}

type fixture struct {
	handler *Handler
	store   *memory.Store
	mux     *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.Now = func() time.Time { return fixedNow }

	dedup := notify.NewDeduplicator(store, 7*24*time.Hour)
	coordinator := booking.NewCoordinator(store)
	renewal := notify.NewRenewalChecker(store, dedup, 7*24*time.Hour)
	chat := assistant.NewService(store, &stubChat{text: "Looking strong!"}, 30*24*time.Hour, time.Second)
	limiter := middleware.NewPerMemberLimiter(600, 100)
	t.Cleanup(limiter.Stop)

	handler := NewHandler(store, coordinator, dedup, renewal, chat, limiter, 30*24*time.Hour)
	handler.now = func() time.Time { return fixedNow }

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return &fixture{handler: handler, store: store, mux: mux}
}

func memberClaims(id string) *auth.Claims {
	return &auth.Claims{Subject: id, Role: auth.RoleMember, ExpiresAt: fixedNow.Add(time.Hour)}
}

func adminClaims() *auth.Claims {
	return &auth.Claims{Subject: "admin-1", Role: auth.RoleAdmin, ExpiresAt: fixedNow.Add(time.Hour)}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	return rr
}

func TestLogWorkoutDefaultsToCaller(t *testing.T) {
	f := newFixture(t)
	member := f.store.AddMember(domain.Member{Name: "Dana", Tier: domain.TierBasic, Active: true})

	rr := f.do(t, http.MethodPost, "/v1/workouts", LogWorkoutRequest{
		Exercise:    "Running",
		Date:        fixedNow.Add(-time.Hour),
		DurationMin: 30,
	}, memberClaims(member.ID))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var view WorkoutView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.MemberID != member.ID {
		t.Fatalf("expected member %s got %s", member.ID, view.MemberID)
	}
	if view.RecordID == "" {
		t.Fatal("expected a record id")
	}
}

func TestLogWorkoutValidation(t *testing.T) {
	f := newFixture(t)
	member := f.store.AddMember(domain.Member{Name: "Dana", Active: true})

	rr := f.do(t, http.MethodPost, "/v1/workouts", LogWorkoutRequest{
		Exercise: "", Date: fixedNow, DurationMin: 30,
	}, memberClaims(member.ID))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestLogWorkoutForAnotherMemberForbidden(t *testing.T) {
	f := newFixture(t)
	member := f.store.AddMember(domain.Member{Name: "Dana", Active: true})
	other := f.store.AddMember(domain.Member{Name: "Eli", Active: true})

	rr := f.do(t, http.MethodPost, "/v1/workouts", LogWorkoutRequest{
		MemberID: other.ID, Exercise: "Running", Date: fixedNow, DurationMin: 30,
	}, memberClaims(member.ID))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestLogWorkoutRequiresAuth(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/v1/workouts", LogWorkoutRequest{
		Exercise: "Running", Date: fixedNow, DurationMin: 30,
	}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestFifthWeeklyWorkoutRaisesProgressAlert(t *testing.T) {
	f := newFixture(t)
	member := f.store.AddMember(domain.Member{Name: "Dana", Active: true})

	for day := 1; day <= 4; day++ {
		_, err := f.store.CreateWorkout(context.Background(), domain.WorkoutRecord{
			MemberID: member.ID, Exercise: "Running",
			Date: fixedNow.AddDate(0, 0, -day), DurationMin: 30,
		})
		if err != nil {
			t.Fatalf("seed workout: %v", err)
		}
	}

	rr := f.do(t, http.MethodPost, "/v1/workouts", LogWorkoutRequest{
		Exercise: "Cycling", Date: fixedNow.Add(-time.Hour), DurationMin: 45,
	}, memberClaims(member.ID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	list, err := f.store.ListNotifications(context.Background(), member.ID, 0)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 1 || list[0].Kind != domain.KindProgress {
		t.Fatalf("expected one progress notification, got %+v", list)
	}

	// A sixth workout inside the cooldown does not raise a second alert.
	rr = f.do(t, http.MethodPost, "/v1/workouts", LogWorkoutRequest{
		Exercise: "Swimming", Date: fixedNow.Add(-30 * time.Minute), DurationMin: 40,
	}, memberClaims(member.ID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rr.Code)
	}
	list, _ = f.store.ListNotifications(context.Background(), member.ID, 0)
	if len(list) != 1 {
		t.Fatalf("expected suppression, got %d notifications", len(list))
	}
}

func TestBookSessionCreatesReservationAndReminder(t *testing.T) {
	f := newFixture(t)
	member := f.store.AddMember(domain.Member{Name: "Dana", Active: true})
	session := f.store.AddSession(domain.Session{
		TrainerID: "trainer-1", StartsAt: fixedNow.Add(48 * time.Hour),
		DurationMin: 60, Capacity: 2, Details: "Strength basics",
	})

	rr := f.do(t, http.MethodPost, "/v1/sessions/book", BookSessionRequest{
		SessionID: session.ID,
	}, memberClaims(member.ID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var view ReservationView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.SessionDetails != "Strength basics" {
		t.Fatalf("unexpected details %q", view.SessionDetails)
	}

	list, _ := f.store.ListNotifications(context.Background(), member.ID, 0)
	if len(list) != 1 || list[0].Kind != domain.KindSessionReminder {
		t.Fatalf("expected one session reminder, got %+v", list)
	}
}

func TestBookSessionConflicts(t *testing.T) {
	f := newFixture(t)
	first := f.store.AddMember(domain.Member{Name: "Dana", Active: true})
	second := f.store.AddMember(domain.Member{Name: "Eli", Active: true})
	session := f.store.AddSession(domain.Session{
		TrainerID: "trainer-1", StartsAt: fixedNow.Add(24 * time.Hour),
		DurationMin: 45, Capacity: 1, Details: "Spin",
	})

	rr := f.do(t, http.MethodPost, "/v1/sessions/book", BookSessionRequest{SessionID: session.ID}, memberClaims(first.ID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/v1/sessions/book", BookSessionRequest{SessionID: session.ID}, memberClaims(first.ID))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate got %d", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/v1/sessions/book", BookSessionRequest{SessionID: session.ID}, memberClaims(second.ID))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for capacity got %d", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/v1/sessions/book", BookSessionRequest{SessionID: "missing"}, memberClaims(second.ID))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session got %d", rr.Code)
	}
}

func TestCancelReservation(t *testing.T) {
	f := newFixture(t)
	member := f.store.AddMember(domain.Member{Name: "Dana", Active: true})
	session := f.store.AddSession(domain.Session{
		TrainerID: "trainer-1", StartsAt: fixedNow.Add(24 * time.Hour),
		DurationMin: 45, Capacity: 1, Details: "Spin",
	})

	reservation, err := f.store.CreateReservation(context.Background(), member.ID, session.ID)
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	rr := f.do(t, http.MethodPost, "/v1/sessions/cancel", CancelReservationRequest{
		ReservationID: reservation.ID,
	}, memberClaims(member.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodPost, "/v1/sessions/cancel", CancelReservationRequest{
		ReservationID: reservation.ID,
	}, memberClaims(member.ID))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestAvailableSessionsReportSpotsLeft(t *testing.T) {
	f := newFixture(t)
	member := f.store.AddMember(domain.Member{Name: "Dana", Active: true})
	session := f.store.AddSession(domain.Session{
		TrainerID: "trainer-1", StartsAt: fixedNow.Add(24 * time.Hour),
		DurationMin: 45, Capacity: 3, Details: "Spin",
	})
	f.store.AddSession(domain.Session{
		TrainerID: "trainer-1", StartsAt: fixedNow.Add(-time.Hour),
		DurationMin: 45, Capacity: 3, Details: "Already started",
	})
	if _, err := f.store.CreateReservation(context.Background(), member.ID, session.ID); err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	rr := f.do(t, http.MethodGet, "/v1/sessions/available", nil, memberClaims(member.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	var resp ListSessionsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected one open session got %d", len(resp.Items))
	}
	if resp.Items[0].SpotsLeft != 2 {
		t.Fatalf("expected 2 spots left got %d", resp.Items[0].SpotsLeft)
	}
}

func TestMemberStats(t *testing.T) {
	f := newFixture(t)
	member := f.store.AddMember(domain.Member{Name: "Dana", Active: true})
	calories := 320.0
	for day := 1; day <= 2; day++ {
		_, err := f.store.CreateWorkout(context.Background(), domain.WorkoutRecord{
			MemberID: member.ID, Exercise: "Running",
			Date: fixedNow.AddDate(0, 0, -day), DurationMin: 30, Calories: &calories,
		})
		if err != nil {
			t.Fatalf("seed workout: %v", err)
		}
	}

	rr := f.do(t, http.MethodGet, "/v1/members/"+member.ID+"/stats", nil, memberClaims(member.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var view StatsView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.WorkoutCount != 2 {
		t.Fatalf("expected 2 workouts got %d", view.WorkoutCount)
	}
	if view.TotalCalories != 640 {
		t.Fatalf("expected 640 total calories got %f", view.TotalCalories)
	}
	if view.WeightTrend != "stable" {
		t.Fatalf("expected stable trend got %q", view.WeightTrend)
	}
}

func TestMemberStatsUnknownMember(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/v1/members/ghost/stats", nil, adminClaims())
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestMemberRecommendations(t *testing.T) {
	f := newFixture(t)
	member := f.store.AddMember(domain.Member{Name: "Dana", Active: true})
	steps := 4000
	if _, err := f.store.CreateHealthSample(context.Background(), domain.HealthSample{
		MemberID: member.ID, Date: fixedNow.AddDate(0, 0, -1), Steps: &steps,
	}); err != nil {
		t.Fatalf("seed sample: %v", err)
	}

	rr := f.do(t, http.MethodGet, "/v1/members/"+member.ID+"/recommendations", nil, memberClaims(member.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ListRecommendationsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) == 0 {
		t.Fatal("expected at least one recommendation")
	}
	if resp.Items[0].Exercise != "Brisk Walking" {
		t.Fatalf("expected step advice first got %q", resp.Items[0].Exercise)
	}
}

func TestChatGatedToGoldMembers(t *testing.T) {
	f := newFixture(t)
	basic := f.store.AddMember(domain.Member{Name: "Dana", Tier: domain.TierBasic, Active: true})

	rr := f.do(t, http.MethodPost, "/v1/members/"+basic.ID+"/chat", ChatRequest{Question: "How am I doing?"}, memberClaims(basic.ID))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestChatAnswersGoldMember(t *testing.T) {
	f := newFixture(t)
	gold := f.store.AddMember(domain.Member{Name: "Dana", Tier: domain.TierGold, Active: true})

	rr := f.do(t, http.MethodPost, "/v1/members/"+gold.ID+"/chat", ChatRequest{Question: "How am I doing?"}, memberClaims(gold.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ChatResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Answer != "Looking strong!" || resp.Fallback {
		t.Fatalf("unexpected answer %+v", resp)
	}
}

func TestChatIsPersonal(t *testing.T) {
	f := newFixture(t)
	gold := f.store.AddMember(domain.Member{Name: "Dana", Tier: domain.TierGold, Active: true})

	// Even an admin cannot chat on a member's behalf.
	rr := f.do(t, http.MethodPost, "/v1/members/"+gold.ID+"/chat", ChatRequest{Question: "hello"}, adminClaims())
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestChatRateLimited(t *testing.T) {
	f := newFixture(t)
	gold := f.store.AddMember(domain.Member{Name: "Dana", Tier: domain.TierGold, Active: true})

	limiter := middleware.NewPerMemberLimiter(1, 1)
	t.Cleanup(limiter.Stop)
	f.handler.limiter = limiter

	rr := f.do(t, http.MethodPost, "/v1/members/"+gold.ID+"/chat", ChatRequest{Question: "hello"}, memberClaims(gold.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	rr = f.do(t, http.MethodPost, "/v1/members/"+gold.ID+"/chat", ChatRequest{Question: "hello again"}, memberClaims(gold.ID))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rr.Code)
	}
}

func TestRenewalCheckRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	member := f.store.AddMember(domain.Member{Name: "Dana", Active: true})

	rr := f.do(t, http.MethodPost, "/v1/admin/renewal-check", nil, memberClaims(member.ID))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestRenewalCheckCreatesNotifications(t *testing.T) {
	f := newFixture(t)
	ends := fixedNow.AddDate(0, 0, 3)
	member := f.store.AddMember(domain.Member{
		Name: "Dana", Tier: domain.TierSilver, Active: true, MembershipEndsAt: &ends,
	})

	rr := f.do(t, http.MethodPost, "/v1/admin/renewal-check", nil, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["notifications_created"] != 1 {
		t.Fatalf("expected 1 notification got %d", resp["notifications_created"])
	}

	list, _ := f.store.ListNotifications(context.Background(), member.ID, 0)
	if len(list) != 1 || list[0].Kind != domain.KindRenewal {
		t.Fatalf("expected one renewal notification, got %+v", list)
	}
}

func TestNotificationsListAndRead(t *testing.T) {
	f := newFixture(t)
	member := f.store.AddMember(domain.Member{Name: "Dana", Active: true})
	created, err := f.store.InsertIfAbsent(context.Background(), member.ID, domain.KindProgress, "Nice work", time.Hour)
	if err != nil {
		t.Fatalf("seed notification: %v", err)
	}

	rr := f.do(t, http.MethodGet, "/v1/notifications", nil, memberClaims(member.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var resp ListNotificationsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Read {
		t.Fatalf("expected one unread notification, got %+v", resp.Items)
	}

	rr = f.do(t, http.MethodPost, "/v1/notifications/"+created.ID+"/read", nil, memberClaims(member.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	// Another member cannot mark it read.
	rr = f.do(t, http.MethodPost, "/v1/notifications/"+created.ID+"/read", nil, memberClaims("someone-else"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}
