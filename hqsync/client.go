package hqsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/gamercodedev-jpg/smartpos-inventory/models"
)

// HTTPTarget mirrors ledger events to the head-office API over HTTP.
type HTTPTarget struct {
	client *resty.Client
	path   string
}

// NewHTTPTarget reads HQ_API_BASE_URL, HQ_API_KEY and optional
// HQ_API_KEY_HEADER / HQ_API_TIMEOUT_SECONDS from the environment.
func NewHTTPTarget() (*HTTPTarget, error) {
	baseURL := strings.TrimSpace(os.Getenv("HQ_API_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("HQ_API_BASE_URL is empty")
	}
	apiKey := strings.TrimSpace(os.Getenv("HQ_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("HQ_API_KEY is empty")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("HQ_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	timeout := 30 * time.Second
	if v := strings.TrimSpace(os.Getenv("HQ_API_TIMEOUT_SECONDS")); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader(apiKeyHeader, apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &HTTPTarget{client: client, path: "/v1/inventory/events"}, nil
}

func (t *HTTPTarget) Name() string { return "hq-http" }

func (t *HTTPTarget) Push(ctx context.Context, event MirrorEvent) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(event).
		Post(t.path)
	if err != nil {
		return &models.RemoteSyncError{Target: t.Name(), Err: err}
	}
	if resp.IsError() {
		return &models.RemoteSyncError{
			Target: t.Name(),
			Err:    fmt.Errorf("hq api error %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String())),
		}
	}
	return nil
}
