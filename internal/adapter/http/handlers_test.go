package adapthttp_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	adapthttp "github.com/brunod-e/daily-diet-api/internal/adapter/http"
	"github.com/brunod-e/daily-diet-api/internal/adapter/memory"
	"github.com/brunod-e/daily-diet-api/internal/app"
	"github.com/brunod-e/daily-diet-api/internal/domain"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestServer(t *testing.T, opts adapthttp.Options) *httptest.Server {
	t.Helper()
	srv, _ := newTestServerWithClock(t, opts)
	return srv
}

func newTestServerWithClock(t *testing.T, opts adapthttp.Options) (*httptest.Server, *clockwork.FakeClock) {
	t.Helper()
	db := memory.New()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))

	users := app.NewUserService(db.NewUserRepo(), db.NewSessionRepo(), clock, 0)
	meals := app.NewMealService(db, clock)
	metrics := app.NewMetricsService(db)

	h := adapthttp.New(users, meals, metrics, nil, opts).WithLogger(zerolog.Nop()).Handler()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, clock
}

func do(t *testing.T, srv *httptest.Server, method, path string, cookie *http.Cookie, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			buf, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			rd = bytes.NewReader(buf)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == adapthttp.SessionCookie {
			return c
		}
	}
	return nil
}

func register(t *testing.T, srv *httptest.Server, name, email string) *http.Cookie {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/users", nil, map[string]string{"name": name, "email": email})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d", email, resp.StatusCode)
	}
	c := sessionCookie(resp)
	if c == nil || c.Value == "" {
		t.Fatalf("register %s: no session cookie", email)
	}
	return c
}

type mealResp struct {
	Meal domain.Meal `json:"meal"`
}

type mealsResp struct {
	Meals []domain.Meal `json:"meals"`
}

func createMeal(t *testing.T, srv *httptest.Server, cookie *http.Cookie, name, date string, onDiet bool) domain.Meal {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/meals", cookie, map[string]any{
		"name":        name,
		"description": name + " description",
		"isOnDiet":    onDiet,
		"date":        date,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create meal %s: expected 201, got %d", name, resp.StatusCode)
	}
	return decode[mealResp](t, resp).Meal
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	resp := do(t, srv, http.MethodGet, "/health", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decode[map[string]bool](t, resp)
	if !got["ok"] {
		t.Errorf("expected ok=true, got %v", got)
	}
}

func TestCreateUser(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	resp := do(t, srv, http.MethodPost, "/users", nil, map[string]string{"name": "Ana", "email": "Ana@Example.com"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	c := sessionCookie(resp)
	if c == nil {
		t.Fatal("expected session cookie")
	}
	if !c.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
	if c.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Errorf("expected 7 day max-age, got %d", c.MaxAge)
	}

	got := decode[struct {
		User domain.User `json:"user"`
	}](t, resp)
	if got.User.Email != "ana@example.com" {
		t.Errorf("expected normalized email, got %q", got.User.Email)
	}

	me := do(t, srv, http.MethodGet, "/users/me", c, nil)
	if me.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", me.StatusCode)
	}
	gotMe := decode[struct {
		User domain.User `json:"user"`
	}](t, me)
	if gotMe.User.ID != got.User.ID {
		t.Errorf("me returned %s, want %s", gotMe.User.ID, got.User.ID)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	register(t, srv, "Ana", "ana@example.com")

	resp := do(t, srv, http.MethodPost, "/users", nil, map[string]string{"name": "Other", "email": "ANA@example.com"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if sessionCookie(resp) != nil {
		t.Error("no session cookie expected on conflict")
	}
}

func TestCreateUser_BadInput(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	tests := []struct {
		name string
		body any
	}{
		{"missing name", map[string]string{"email": "a@example.com"}},
		{"bad email", map[string]string{"name": "A", "email": "not-an-email"}},
		{"malformed json", `{"name":`},
		{"unknown field", map[string]string{"name": "A", "email": "a@example.com", "role": "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, srv, http.MethodPost, "/users", nil, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestCreateUser_RateLimited(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{SignupRate: 0.001, SignupBurst: 2})
	register(t, srv, "A", "a@example.com")
	register(t, srv, "B", "b@example.com")

	resp := do(t, srv, http.MethodPost, "/users", nil, map[string]string{"name": "C", "email": "c@example.com"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
}

func signupFrom(t *testing.T, srv *httptest.Server, i int, forwardedFor string) int {
	t.Helper()
	body := fmt.Sprintf(`{"name":"u%d","email":"u%d@example.com"}`, i, i)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/users", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("post /users: %v", err)
	}
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestCreateUser_RateLimitIgnoresForwardedFor(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{SignupRate: 0.001, SignupBurst: 1})

	if got := signupFrom(t, srv, 1, "203.0.113.1"); got != http.StatusCreated {
		t.Fatalf("first signup: expected 201, got %d", got)
	}
	if got := signupFrom(t, srv, 2, "203.0.113.2"); got != http.StatusTooManyRequests {
		t.Errorf("rotated forwarded-for: expected 429, got %d", got)
	}
}

func TestCreateUser_RateLimitTrustedProxy(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{SignupRate: 0.001, SignupBurst: 1, TrustProxy: true})

	if got := signupFrom(t, srv, 1, "203.0.113.1"); got != http.StatusCreated {
		t.Fatalf("first client: expected 201, got %d", got)
	}
	if got := signupFrom(t, srv, 2, "203.0.113.2"); got != http.StatusCreated {
		t.Errorf("second client: expected 201, got %d", got)
	}
	if got := signupFrom(t, srv, 3, "203.0.113.1"); got != http.StatusTooManyRequests {
		t.Errorf("first client again: expected 429, got %d", got)
	}
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	c := register(t, srv, "Ana", "ana@example.com")

	resp := do(t, srv, http.MethodPost, "/users/logout", c, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if cleared := sessionCookie(resp); cleared == nil || cleared.MaxAge >= 0 {
		t.Error("expected session cookie to be cleared")
	}

	if resp := do(t, srv, http.MethodGet, "/meals", c, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

// ---------------------------------------------------------------------------
// Meals
// ---------------------------------------------------------------------------

func TestMeals_RequireSession(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	bogus := &http.Cookie{Name: adapthttp.SessionCookie, Value: "bogus"}

	for _, c := range []*http.Cookie{nil, bogus} {
		for _, path := range []string{"/meals", "/meals/metrics", "/users/me"} {
			resp := do(t, srv, http.MethodGet, path, c, nil)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("GET %s (cookie=%v): expected 401, got %d", path, c != nil, resp.StatusCode)
			}
		}
	}
}

func TestMeals_CreateAndListOrder(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	c := register(t, srv, "Ana", "ana@example.com")

	a := createMeal(t, srv, c, "A", "2024-01-01T08:00:00Z", true)
	b := createMeal(t, srv, c, "B", "2024-01-02T08:00:00Z", false)
	cm := createMeal(t, srv, c, "C", "2024-01-03T08:00:00Z", true)

	if a.Description != "A description" || !a.IsOnDiet {
		t.Errorf("unexpected meal A: %+v", a)
	}

	resp := do(t, srv, http.MethodGet, "/meals", c, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decode[mealsResp](t, resp).Meals
	if len(got) != 3 {
		t.Fatalf("expected 3 meals, got %d", len(got))
	}
	for i, want := range []domain.Meal{cm, b, a} {
		if got[i].ID != want.ID {
			t.Errorf("position %d: got %s, want %s", i, got[i].Name, want.Name)
		}
	}
}

func TestMeals_SameDateNewestCreatedFirst(t *testing.T) {
	srv, clock := newTestServerWithClock(t, adapthttp.Options{})
	c := register(t, srv, "Ana", "ana@example.com")

	a := createMeal(t, srv, c, "A", "2024-01-01T12:00:00Z", true)
	clock.Advance(time.Second)
	b := createMeal(t, srv, c, "B", "2024-01-01T12:00:00Z", false)

	for i := 0; i < 10; i++ {
		got := decode[mealsResp](t, do(t, srv, http.MethodGet, "/meals", c, nil)).Meals
		if len(got) != 2 || got[0].ID != b.ID || got[1].ID != a.ID {
			t.Fatalf("run %d: expected B then A, got %+v", i, got)
		}
	}
}

func TestMeals_EmptyDescriptionAllowed(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	c := register(t, srv, "Ana", "ana@example.com")

	resp := do(t, srv, http.MethodPost, "/meals", c, map[string]any{
		"name": "x", "description": "", "isOnDiet": true, "date": "2024-01-01",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
}

func TestMeals_CreateValidation(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	c := register(t, srv, "Ana", "ana@example.com")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"description": "", "isOnDiet": true, "date": "2024-01-01"}},
		{"missing description", map[string]any{"name": "x", "isOnDiet": true, "date": "2024-01-01"}},
		{"missing flag", map[string]any{"name": "x", "description": "", "date": "2024-01-01"}},
		{"missing date", map[string]any{"name": "x", "description": "", "isOnDiet": true}},
		{"bad date", map[string]any{"name": "x", "description": "", "isOnDiet": true, "date": "yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, srv, http.MethodPost, "/meals", c, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestMeals_DateFormats(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	c := register(t, srv, "Ana", "ana@example.com")

	want := time.Date(2023, 12, 15, 1, 57, 59, 0, time.UTC)
	tests := []struct {
		name string
		date any
	}{
		{"rfc3339", "2023-12-15T01:57:59Z"},
		{"javascript", "Thu Dec 14 2023 22:57:59 GMT-0300 (Brasilia Standard Time)"},
		{"unix millis", want.UnixMilli()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, srv, http.MethodPost, "/meals", c, map[string]any{
				"name": "x", "description": "", "isOnDiet": true, "date": tt.date,
			})
			if resp.StatusCode != http.StatusCreated {
				t.Fatalf("expected 201, got %d", resp.StatusCode)
			}
			got := decode[mealResp](t, resp).Meal
			if !got.Date.Equal(want) {
				t.Errorf("date = %s, want %s", got.Date, want)
			}
		})
	}
}

func TestMeals_GetUpdateDelete(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	c := register(t, srv, "Ana", "ana@example.com")
	m := createMeal(t, srv, c, "Lunch", "2024-01-01T12:00:00Z", true)
	path := "/meals/" + m.ID.String()

	resp := do(t, srv, http.MethodGet, path, c, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	if got := decode[mealResp](t, resp).Meal; got.Name != "Lunch" {
		t.Errorf("get: name = %q", got.Name)
	}

	resp = do(t, srv, http.MethodPut, path, c, map[string]any{
		"name": "Pizza", "description": "late", "isOnDiet": false, "date": "2024-01-01T23:00:00Z",
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("update: expected 204, got %d", resp.StatusCode)
	}

	got := decode[mealResp](t, do(t, srv, http.MethodGet, path, c, nil)).Meal
	if got.Name != "Pizza" || got.Description != "late" || got.IsOnDiet {
		t.Errorf("update not applied: %+v", got)
	}
	if !got.CreatedAt.Equal(m.CreatedAt) {
		t.Errorf("createdAt changed: %s -> %s", m.CreatedAt, got.CreatedAt)
	}

	if resp := do(t, srv, http.MethodDelete, path, c, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		if resp := do(t, srv, method, path, c, nil); resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s after delete: expected 404, got %d", method, resp.StatusCode)
		}
	}
}

func TestMeals_OtherUserSeesNotFound(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	owner := register(t, srv, "Ana", "ana@example.com")
	other := register(t, srv, "Bia", "bia@example.com")
	m := createMeal(t, srv, owner, "Lunch", "2024-01-01T12:00:00Z", true)
	path := "/meals/" + m.ID.String()

	if resp := do(t, srv, http.MethodGet, path, other, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get: expected 404, got %d", resp.StatusCode)
	}
	resp := do(t, srv, http.MethodPut, path, other, map[string]any{
		"name": "stolen", "description": "", "isOnDiet": false, "date": "2024-01-01",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("update: expected 404, got %d", resp.StatusCode)
	}
	if resp := do(t, srv, http.MethodDelete, path, other, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete: expected 404, got %d", resp.StatusCode)
	}

	list := decode[mealsResp](t, do(t, srv, http.MethodGet, "/meals", other, nil)).Meals
	if len(list) != 0 {
		t.Errorf("expected empty list for other user, got %d", len(list))
	}

	got := decode[mealResp](t, do(t, srv, http.MethodGet, path, owner, nil)).Meal
	if got.Name != "Lunch" {
		t.Errorf("owner's meal modified: %+v", got)
	}
}

func TestMeals_InvalidID(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	c := register(t, srv, "Ana", "ana@example.com")

	resp := do(t, srv, http.MethodGet, "/meals/not-a-uuid", c, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMeals_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	c := register(t, srv, "Ana", "ana@example.com")

	resp := do(t, srv, http.MethodPatch, "/meals", c, nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	c := register(t, srv, "Ana", "ana@example.com")

	createMeal(t, srv, c, "A", "2024-01-01T08:00:00Z", true)
	createMeal(t, srv, c, "B", "2024-01-01T12:00:00Z", true)
	createMeal(t, srv, c, "C", "2024-01-01T19:00:00Z", false)

	other := register(t, srv, "Bia", "bia@example.com")
	createMeal(t, srv, other, "X", "2024-01-01T08:00:00Z", true)

	resp := do(t, srv, http.MethodGet, "/meals/metrics", c, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decode[domain.Metrics](t, resp)
	want := domain.Metrics{TotalMeals: 3, TotalMealsOnDiet: 2, TotalMealsOffDiet: 1, BestOnDietSequence: 2}
	if got != want {
		t.Errorf("metrics = %+v, want %+v", got, want)
	}
}

func TestMetrics_Empty(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})
	c := register(t, srv, "Ana", "ana@example.com")

	got := decode[domain.Metrics](t, do(t, srv, http.MethodGet, "/meals/metrics", c, nil))
	if got != (domain.Metrics{}) {
		t.Errorf("expected zero metrics, got %+v", got)
	}
}

// ---------------------------------------------------------------------------
// SSO
// ---------------------------------------------------------------------------

func TestSSO_Disabled(t *testing.T) {
	srv := newTestServer(t, adapthttp.Options{})

	got := decode[map[string]bool](t, do(t, srv, http.MethodGet, "/auth/config", nil, nil))
	if got["sso_enabled"] {
		t.Error("expected sso_enabled=false")
	}
	for _, path := range []string{"/auth/sso/login", "/auth/sso/callback"} {
		if resp := do(t, srv, http.MethodGet, path, nil, nil); resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}
