package server

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	clienthandler "crm-backend/internal/client/handler"
	"crm-backend/internal/client/repository"
	"crm-backend/internal/client/service"
	"crm-backend/internal/db/dbtest"
	healthhandler "crm-backend/internal/health/handler"
	"crm-backend/internal/server/middleware"
)

func newTestRouter(t *testing.T, accessLog *bytes.Buffer) http.Handler {
	t.Helper()
	gw := dbtest.NewMemoryGateway()
	svc := service.NewClientService(repository.NewGatewayRepository(gw), nil)
	deps := Deps{
		Clients:     clienthandler.NewHandler(svc),
		Health:      healthhandler.NewServer(gw, true),
		ServiceName: "crm-backend-test",
	}
	if accessLog != nil {
		deps.AccessLog = accessLog
	}
	h, err := NewRouter(deps)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return h
}

func TestRouter_EndToEnd(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/clients",
		strings.NewReader(`{"first_name":"Ana","last_name":"Silva"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	id, _ := created["id"].(string)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/clients/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "CRM Backend running") {
		t.Errorf("GET / = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	if !strings.Contains(rec.Body.String(), `"client"`) {
		t.Errorf("GET /test should list the client collection: %s", rec.Body.String())
	}
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	h := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(middleware.RequestIDHeader); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}

func TestRouter_CORS(t *testing.T) {
	h := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q, want echoed origin", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want true", got)
	}

	pre := httptest.NewRequest(http.MethodOptions, "/api/clients/65f0a0a0a0a0a0a0a0a0a0a0", nil)
	pre.Header.Set("Origin", "https://app.example.com")
	pre.Header.Set("Access-Control-Request-Method", http.MethodPut)
	pre.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Custom")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, pre)
	if rec.Code >= 300 {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPut) {
		t.Errorf("Allow-Methods = %q, want PUT", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("preflight Allow-Origin = %q", got)
	}
}

func TestRouter_AccessLog(t *testing.T) {
	var buf bytes.Buffer
	h := newTestRouter(t, &buf)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/clients", nil))
	if !strings.Contains(buf.String(), "GET /api/clients") {
		t.Errorf("access log = %q", buf.String())
	}
}

func TestRouter_OneAccessLinePerRequest(t *testing.T) {
	var std bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&std)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	}()

	var access bytes.Buffer
	h := newTestRouter(t, &access)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/clients", nil))

	if n := strings.Count(access.String(), "\n"); n != 1 {
		t.Errorf("access log has %d lines, want 1: %q", n, access.String())
	}
	if strings.Contains(std.String(), "/api/clients") {
		t.Errorf("request also logged through the standard logger: %q", std.String())
	}
}

func TestWrap_RecoversFromPanic(t *testing.T) {
	h := wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestWrap_ProxyHeadersSetRemoteAddr(t *testing.T) {
	var remote string
	h := wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { remote = r.RemoteAddr }), nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if remote != "203.0.113.7" {
		t.Errorf("RemoteAddr = %q, want first X-Forwarded-For hop", remote)
	}
}
