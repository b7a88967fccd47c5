package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
	enginex "github.com/lucy-fin/lucy-agent/agent/engine"
	extractx "github.com/lucy-fin/lucy-agent/agent/extract"
	rolesx "github.com/lucy-fin/lucy-agent/agent/roles"
	stagex "github.com/lucy-fin/lucy-agent/agent/stage"
	statex "github.com/lucy-fin/lucy-agent/agent/state"
)

func newTestServer(t *testing.T) (*Server, statex.Store) {
	t.Helper()

	store := statex.NewMemoryStore()
	engine, err := enginex.New(
		store,
		stagex.MustNewRegistry(),
		rolesx.NewRegistry(),
		extractx.NewRuleExtractor(),
		nil,
		nil,
		enginex.Config{TurnTimeout: 5 * time.Second},
	)
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}

	srv, err := New(Config{Addr: ":0"}, engine, store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, store
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestPostMessageRunsTurn(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)

	body := strings.NewReader(`{"message":"Hi, I need a loan for my small shop in Nairobi"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/customers/255700000000/messages", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result contractx.TurnResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Stage != contractx.StageB1 {
		t.Fatalf("Stage = %q, want B1", result.Stage)
	}
	if !strings.Contains(result.Reply, "photo") {
		t.Fatalf("Reply = %q, want a photo request", result.Reply)
	}

	if _, err := store.Load(context.Background(), "255700000000"); err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
}

func TestPostMessageWithAttachments(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	intro := httptest.NewRequest(http.MethodPost, "/v1/customers/cust-1/messages",
		strings.NewReader(`{"message":"Hi, I run a shop in Nairobi"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, intro)
	if rec.Code != http.StatusOK {
		t.Fatalf("intro status = %d", rec.Code)
	}

	photo := httptest.NewRequest(http.MethodPost, "/v1/customers/cust-1/messages",
		strings.NewReader(`{"attachments":[{"id":"media-1","kind":"image"}]}`))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, photo)
	if rec.Code != http.StatusOK {
		t.Fatalf("photo status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result contractx.TurnResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Stage != contractx.StageE4A {
		t.Fatalf("Stage = %q, want E4A after photo", result.Stage)
	}
}

func TestPostMessageEmptyTurnIsBadRequest(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/customers/cust-1/messages",
		strings.NewReader(`{"message":""}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPostMessageInvalidBody(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/customers/cust-1/messages",
		strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetSession(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/customers/cust-1/session", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for an unseen customer", rec.Code)
	}

	session := statex.NewSession("cust-1", time.Now())
	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/customers/cust-1/session", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var loaded statex.Session
	if err := json.NewDecoder(rec.Body).Decode(&loaded); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if loaded.Stage != contractx.StageB1 {
		t.Fatalf("Stage = %q, want B1", loaded.Stage)
	}
}
