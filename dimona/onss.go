/*
onss.go - HTTP implementations of the Declarant capability

ONSSClient:

	Automated path. POSTs declarations to the configured Dimona endpoint
	with a bounded per-call timeout. A timeout or network failure is
	reported as retryable; an HTTP rejection carries the body as the
	structured failure reason. The wire schema here is the minimal field
	set the collaborator needs; the full ONSS protocol lives outside this
	module.

PortalDeclarant:

	Manual fallback for deployments without API credentials. Declare always
	refuses with ErrManualOnly, leaving declarations in ready until the
	manager files through the government portal and self-reports via
	Manager.ManualReport. Cancel likewise.
*/
package dimona

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// =============================================================================
// ONSS CLIENT - Automated API path
// =============================================================================

type ONSSClient struct {
	BaseURL string
	APIKey  string

	// Timeout bounds each declare/cancel call. Defaults to 10s.
	Timeout time.Duration

	// HTTPClient is overridable in tests. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

type declareRequest struct {
	DeclarationID string `json:"declaration_id"`
	Type          string `json:"type"`
	ShiftID       string `json:"shift_id"`
	WorkerID      string `json:"worker_id"`
	LocationID    string `json:"location_id"`
}

type declareResponse struct {
	PeriodID string `json:"period_id"`
	Reason   string `json:"reason"`
}

func (c *ONSSClient) Declare(ctx context.Context, d Declaration) (string, error) {
	body := declareRequest{
		DeclarationID: d.ID,
		Type:          string(d.Type),
		ShiftID:       d.ShiftID,
		WorkerID:      d.WorkerID,
		LocationID:    d.LocationID,
	}

	var resp declareResponse
	if err := c.post(ctx, "/declarations", body, &resp); err != nil {
		return "", err
	}
	if resp.PeriodID == "" {
		return "", &CollaboratorError{Reason: "response missing period id"}
	}
	return resp.PeriodID, nil
}

func (c *ONSSClient) Cancel(ctx context.Context, periodID string, reason CancelReason) error {
	body := map[string]string{"period_id": periodID, "reason": string(reason)}
	return c.post(ctx, "/declarations/cancel", body, &declareResponse{})
}

func (c *ONSSClient) post(ctx context.Context, path string, body, out any) error {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		// Timeouts and network failures alike are retryable; only an
		// answered rejection below is terminal.
		return &CollaboratorError{Timeout: true, Reason: err.Error()}
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		reason := string(raw)
		var parsed declareResponse
		if json.Unmarshal(raw, &parsed) == nil && parsed.Reason != "" {
			reason = parsed.Reason
		}
		return &CollaboratorError{Reason: fmt.Sprintf("http %d: %s", res.StatusCode, reason)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &CollaboratorError{Reason: "unparseable response: " + err.Error()}
	}
	return nil
}

// =============================================================================
// PORTAL DECLARANT - Manual fallback
// =============================================================================

type PortalDeclarant struct{}

func (PortalDeclarant) Declare(ctx context.Context, d Declaration) (string, error) {
	return "", ErrManualOnly
}

func (PortalDeclarant) Cancel(ctx context.Context, periodID string, reason CancelReason) error {
	return ErrManualOnly
}
