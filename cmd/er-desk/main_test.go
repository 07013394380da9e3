package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/acil/er-desk/internal/config"
)

// fakeBackend is a minimal ER backend. Only doctor/doctor123 is accepted.
type fakeBackend struct {
	srv         *httptest.Server
	noteQuery   string
	noteBody    map[string]any
	statusQuery string
	lastPath    string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	fb.srv = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	fb.lastPath = r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	if u, p, ok := r.BasicAuth(); !ok || u != "doctor" || p != "doctor123" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Bad credentials"}`)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/appointments/today":
		_, _ = io.WriteString(w, `[
			{"id":7,"queueNumber":1,"status":"IN_PROGRESS","appointmentDate":"2026-10-17","patient":{"id":1,"name":"Ayse Yilmaz","tc":"12345678901"}},
			{"id":8,"queueNumber":2,"status":"WAITING","appointmentDate":"2026-10-17","patient":{"id":2,"name":"Mehmet Kaya","tc":"10987654321"}}
		]`)
	case r.Method == http.MethodGet && r.URL.Path == "/appointments/7/detail":
		_, _ = io.WriteString(w, `{
			"appointment":{"id":7,"queueNumber":1,"status":"IN_PROGRESS","appointmentDate":"2026-10-17"},
			"patient":{"id":1,"name":"Ayse Yilmaz","tc":"12345678901","basicSymptomsCsv":"fever, cough"},
			"triageRecords":[{"id":3,"nurseSymptomsCsv":"fever, cough","triageLevel":"YELLOW",
				"suggestionsJson":"[{\"match_score\":0.82,\"reasoning\":\"Influenza\"}]"}],
			"doctorNotes":[]
		}`)
	case r.Method == http.MethodPatch && r.URL.Path == "/appointments/7/status":
		fb.statusQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"appointmentId":7,"status":"`+r.URL.Query().Get("status")+`"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/doctor-notes":
		fb.noteQuery = r.URL.RawQuery
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &fb.noteBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":11,"diagnosis":"Influenza"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"no such resource"}`)
	}
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Port:          "0",
		Env:           "development",
		LogLevel:      "error",
		APIBaseURL:    baseURL,
		SessionSecret: "test-secret-test-secret-test-secret",
		SessionTTL:    time.Hour,
		CORSOrigins:   []string{"http://localhost:5173"},
	}
}

func serve(t *testing.T, srv *server, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, srv *server) string {
	t.Helper()
	rec := serve(t, srv, http.MethodPost, "/api/login", "", `{"username":" doctor ","password":"doctor123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tok struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if tok.Username != "doctor" {
		t.Errorf("expected trimmed username, got %q", tok.Username)
	}
	return tok.Token
}

func TestServer_Health(t *testing.T) {
	fb := newFakeBackend(t)
	srv, err := newServer(testConfig(fb.srv.URL), zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	rec := serve(t, srv, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id on the response")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestServer_RequiresSession(t *testing.T) {
	fb := newFakeBackend(t)
	srv, err := newServer(testConfig(fb.srv.URL), zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	rec := serve(t, srv, http.MethodGet, "/api/appointments/7", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestServer_UnknownRouteIsNotFound(t *testing.T) {
	fb := newFakeBackend(t)
	srv, err := newServer(testConfig(fb.srv.URL), zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	for _, target := range []string{"/api/nope", "/nope"} {
		rec := serve(t, srv, http.MethodGet, target, "", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", target, rec.Code)
		}
	}
}

func TestServer_AuditsRejectedAccess(t *testing.T) {
	fb := newFakeBackend(t)
	var logs bytes.Buffer
	srv, err := newServer(testConfig(fb.srv.URL), zerolog.New(&logs))
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	rec := serve(t, srv, http.MethodGet, "/api/appointments/7", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	found := false
	for _, line := range strings.Split(logs.String(), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) != nil || entry["message"] != "phi_access" {
			continue
		}
		found = true
		if entry["status"] != float64(http.StatusUnauthorized) || entry["appointment_id"] != "7" {
			t.Errorf("unexpected audit entry %v", entry)
		}
	}
	if !found {
		t.Errorf("expected an audit entry for the rejected request, logs: %s", logs.String())
	}
}

func TestServer_LoginRejectsBadCredentials(t *testing.T) {
	fb := newFakeBackend(t)
	srv, err := newServer(testConfig(fb.srv.URL), zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	rec := serve(t, srv, http.MethodPost, "/api/login", "", `{"username":"doctor","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestServer_AppointmentWorkflow(t *testing.T) {
	fb := newFakeBackend(t)
	srv, err := newServer(testConfig(fb.srv.URL), zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	token := login(t, srv)

	rec := serve(t, srv, http.MethodGet, "/api/appointments/7", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("view: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Influenza") {
		t.Errorf("expected parsed suggestions in view, got %s", rec.Body.String())
	}

	rec = serve(t, srv, http.MethodGet, "/api/appointments/today?limit=1", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("today: expected 200, got %d", rec.Code)
	}
	var page struct {
		Total   int  `json:"total"`
		HasMore bool `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 2 || !page.HasMore {
		t.Errorf("unexpected page: %+v", page)
	}

	rec = serve(t, srv, http.MethodPost, "/api/appointments/7/note?markDone=false", token,
		`{"diagnosis":"Influenza","plan":"Rest and fluids","restDays":"3"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("note: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if fb.noteQuery != "markDone=false" {
		t.Errorf("expected markDone=false, got %q", fb.noteQuery)
	}
	if fb.noteBody["restDays"] != float64(3) || fb.noteBody["prescription"] != nil {
		t.Errorf("unexpected note body: %v", fb.noteBody)
	}

	rec = serve(t, srv, http.MethodGet, "/api/appointments/99", token, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing appointment: expected 404, got %d", rec.Code)
	}

	rec = serve(t, srv, http.MethodPost, "/api/logout", token, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("logout: expected 204, got %d", rec.Code)
	}
	rec = serve(t, srv, http.MethodGet, "/api/appointments/7", token, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout: expected 401, got %d", rec.Code)
	}
}

// runCLI executes the root command against the fake backend.
func runCLI(t *testing.T, fb *fakeBackend, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV", "development")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ER_USERNAME", "doctor")
	t.Setenv("ER_PASSWORD", "doctor123")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--api-url", fb.srv.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_Login(t *testing.T) {
	fb := newFakeBackend(t)
	out, err := runCLI(t, fb, "login")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Logged in as doctor") {
		t.Errorf("unexpected output %q", out)
	}

	if _, err := runCLI(t, fb, "login", "--password", "nope"); err == nil {
		t.Error("expected bad password to fail")
	}
}

func TestCLI_AppointmentToday(t *testing.T) {
	fb := newFakeBackend(t)
	out, err := runCLI(t, fb, "appointment", "today")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if !strings.Contains(out, "Ayse Yilmaz") || !strings.Contains(out, "Mehmet Kaya") {
		t.Errorf("expected both patients, got %q", out)
	}
}

func TestCLI_AppointmentStatus(t *testing.T) {
	fb := newFakeBackend(t)
	out, err := runCLI(t, fb, "appointment", "status", "7", "done")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if fb.statusQuery != "status=DONE" {
		t.Errorf("expected normalised status, got %q", fb.statusQuery)
	}
	if !strings.Contains(out, `"DONE"`) {
		t.Errorf("unexpected output %q", out)
	}

	if _, err := runCLI(t, fb, "appointment", "status", "7", "ASLEEP"); err == nil {
		t.Error("expected unknown status to fail")
	}
}

func TestCLI_NoteSubmit(t *testing.T) {
	fb := newFakeBackend(t)
	out, err := runCLI(t, fb, "note", "submit", "7",
		"--diagnosis", "Influenza",
		"--plan", "Rest and fluids",
		"--lab-order", "CBC",
		"--lab-order", "CRP",
		"--referral-department", "Internal Medicine",
	)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if fb.noteQuery != "markDone=true" {
		t.Errorf("expected markDone=true by default, got %q", fb.noteQuery)
	}
	if fb.noteBody["labOrders"] != "CBC, CRP" || fb.noteBody["referralNeeded"] != true {
		t.Errorf("unexpected note body: %v", fb.noteBody)
	}
	if !strings.Contains(out, `"id": 11`) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestCLI_NoteSubmit_LabOrderWithCommas(t *testing.T) {
	fb := newFakeBackend(t)
	_, err := runCLI(t, fb, "note", "submit", "7",
		"--diagnosis", "Diabetic ketoacidosis",
		"--plan", "Insulin infusion",
		"--lab-order", "Biyokimya (Glukoz, Üre, Kreatinin)",
		"--lab-order", "Tam Kan Sayımı",
	)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := fb.noteBody["labOrders"]; got != "Biyokimya (Glukoz, Üre, Kreatinin), Tam Kan Sayımı" {
		t.Errorf("expected lab orders kept whole, got %v", got)
	}
}

func TestCLI_NoteSubmit_Invalid(t *testing.T) {
	fb := newFakeBackend(t)
	if _, err := runCLI(t, fb, "note", "submit", "7", "--plan", "x"); err == nil {
		t.Fatal("expected missing diagnosis to fail")
	}
	if fb.lastPath == "/doctor-notes" {
		t.Error("invalid note must not reach the backend")
	}
}
