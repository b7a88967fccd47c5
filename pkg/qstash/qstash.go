// Package qstash publishes messages to Upstash QStash over its REST API.
// The engine uses it to hand disbursement-requested events to the external
// disbursement pipeline.
package qstash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

const maxResponseSizeBytes = 1 << 20

type Config struct {
	URL               string        `split_words:"true" required:"true"`
	Token             string        `split_words:"true" required:"true"`
	DisbursementTopic string        `split_words:"true" default:"loan-disbursements"`
	CurrentSigningKey string        `split_words:"true"`
	NextSigningKey    string        `split_words:"true"`
	Timeout           time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	baseURL           string
	token             string
	disbursementTopic string
	currentSigningKey string
	nextSigningKey    string
	httpClient        *http.Client
}

var _ contractx.DisbursementPublisher = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("qstash url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	topic := strings.TrimSpace(cfg.DisbursementTopic)
	if topic == "" {
		topic = "loan-disbursements"
	}

	client := &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		token:             strings.TrimSpace(cfg.Token),
		disbursementTopic: topic,
		currentSigningKey: strings.TrimSpace(cfg.CurrentSigningKey),
		nextSigningKey:    strings.TrimSpace(cfg.NextSigningKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	return client, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// PublishDisbursementRequest delivers the event to the disbursement topic.
// Deduplication uses the offer ID, so a republished accept is a no-op on the
// consumer side.
func (c *Client) PublishDisbursementRequest(ctx context.Context, req contractx.DisbursementRequest) error {
	if strings.TrimSpace(req.OfferID) == "" {
		return fmt.Errorf("%w: offer id is required", contractx.ErrValidation)
	}
	return c.publish(ctx, c.disbursementTopic, req.OfferID, req)
}

func (c *Client) publish(ctx context.Context, topic, dedupID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal qstash payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/publish/%s", c.baseURL, url.PathEscape(topic))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build qstash request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if dedupID != "" {
		req.Header.Set("Upstash-Deduplication-Id", dedupID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: execute qstash request: %v", contractx.ErrExternalService, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read qstash response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: qstash http status=%d body=%s", contractx.ErrExternalService, resp.StatusCode, string(raw))
	}
	return nil
}
