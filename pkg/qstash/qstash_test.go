package qstash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

func TestNewClientRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{Token: "token"}); err == nil {
		t.Fatalf("NewClient() error = nil, want missing url error")
	}
}

func TestPublishDisbursementRequest(t *testing.T) {
	t.Parallel()

	var (
		gotPath    string
		gotAuth    string
		gotDedup   string
		gotPayload contractx.DisbursementRequest
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDedup = r.Header.Get("Upstash-Deduplication-Id")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		fmt.Fprint(w, `{"messageId":"msg-1"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		URL:   server.URL,
		Token: "token",
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	req := contractx.DisbursementRequest{
		CustomerID: "cust-1",
		OfferID:    "offer-1",
		Principal:  15_500,
		TermDays:   30,
		DailyRate:  0.006,
		AcceptedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	if err := client.PublishDisbursementRequest(context.Background(), req); err != nil {
		t.Fatalf("PublishDisbursementRequest() error = %v", err)
	}

	if gotPath != "/v2/publish/loan-disbursements" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotDedup != "offer-1" {
		t.Fatalf("dedup id = %q, want the offer id", gotDedup)
	}
	if gotPayload.OfferID != "offer-1" || gotPayload.Principal != 15_500 {
		t.Fatalf("payload = %+v", gotPayload)
	}
}

func TestPublishDisbursementRequestRequiresOfferID(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{URL: "https://qstash.example", Token: "token"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	err = client.PublishDisbursementRequest(context.Background(), contractx.DisbursementRequest{})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestPublishSurfacesUpstreamFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, Token: "token"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	err = client.PublishDisbursementRequest(context.Background(), contractx.DisbursementRequest{OfferID: "offer-1"})
	if !errors.Is(err, contractx.ErrExternalService) {
		t.Fatalf("error = %v, want ErrExternalService", err)
	}
}
