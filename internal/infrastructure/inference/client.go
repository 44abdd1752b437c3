package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"blogdigest/internal/domain"
	"blogdigest/internal/ports"
)

// Client talks to the managed batch inference capability. The capability
// reads staged input manifests, runs the named model, and writes result
// manifests to the output location; this client only submits jobs and
// polls their status.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.InferenceRunner = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 20 * time.Second},
	}
}

// StartJob submits a batch job and returns its identifier.
func (c *Client) StartJob(ctx context.Context, spec ports.JobSpec) (string, error) {
	payload := map[string]string{
		"jobName":   spec.Name,
		"modelId":   spec.Model,
		"inputKey":  spec.InputKey,
		"outputKey": spec.OutputKey,
	}

	var resp struct {
		JobID string `json:"jobId"`
	}
	if err := c.post(ctx, "/jobs", payload, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("inference service returned no job id")
	}
	return resp.JobID, nil
}

// JobStatus polls one job.
func (c *Client) JobStatus(ctx context.Context, id string) (domain.JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/jobs/"+id, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("poll job %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("poll job %s: unexpected status %s", id, resp.Status)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode job status: %w", err)
	}

	return mapStatus(body.Status), nil
}

// mapStatus normalizes the service's status vocabulary onto the job
// lifecycle.
func mapStatus(value string) domain.JobStatus {
	switch strings.ToLower(value) {
	case "completed", "succeeded":
		return domain.JobSucceeded
	case "failed", "stopped":
		return domain.JobFailed
	case "submitted", "validating":
		return domain.JobSubmitted
	default:
		return domain.JobPolling
	}
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("inference error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
