// Package sensor talks to the fingerprint sensor agent, a small local
// service wrapping the vendor SDK (device acquisition, LED control, capture,
// template merge and template match scoring).
package sensor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LED colors understood by the agent.
const (
	LedWhite = "white"
	LedGreen = "green"
	LedRed   = "red"
)

// SensorClient communicates with the fingerprint sensor agent.
type SensorClient struct {
	baseURL    string
	httpClient *http.Client
}

// CaptureResponse is one finger capture: the raw preview image and the
// capture's individual template.
type CaptureResponse struct {
	Success  bool   `json:"success"`
	Image    []byte `json:"image"`    // raw sensor image bytes for display
	Template []byte `json:"template"` // single-capture template
	Error    string `json:"error,omitempty"`
}

// MergeRequest asks the SDK to merge three captures into one template.
type MergeRequest struct {
	Templates [][]byte `json:"templates"`
}

// MergeResponse carries the merged template blob.
type MergeResponse struct {
	Success  bool   `json:"success"`
	Template []byte `json:"template"`
	Error    string `json:"error,omitempty"`
}

// MatchCandidate is one stored template offered to the SDK match routine.
type MatchCandidate struct {
	EmployeeID string `json:"employee_id"`
	Template   []byte `json:"template"`
}

// MatchRequest scores a probe template against a candidate set.
type MatchRequest struct {
	Probe      []byte           `json:"probe"`
	Candidates []MatchCandidate `json:"candidates"`
}

// MatchScore is the SDK score for one candidate.
type MatchScore struct {
	EmployeeID string `json:"employee_id"`
	Score      int    `json:"score"`
}

// MatchResponse is the scored candidate list, unordered.
type MatchResponse struct {
	Success bool         `json:"success"`
	Scores  []MatchScore `json:"scores"`
	Error   string       `json:"error,omitempty"`
}

// HealthResponse is the response from health check
type HealthResponse struct {
	Status  string `json:"status"`
	Device  string `json:"device"`
	Version string `json:"version"`
}

// NewSensorClient creates a new sensor agent client
func NewSensorClient(baseURL string) *SensorClient {
	return &SensorClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second, // capture blocks until a finger lands or the SDK times out
		},
	}
}

// Open acquires the device.
func (c *SensorClient) Open(ctx context.Context) error {
	return c.postNoBody(ctx, "/open")
}

// Close releases the device.
func (c *SensorClient) Close(ctx context.Context) error {
	return c.postNoBody(ctx, "/close")
}

// SetLED sets the indicator LED color.
func (c *SensorClient) SetLED(ctx context.Context, color string) error {
	body, _ := json.Marshal(map[string]string{"color": color})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/led", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call sensor agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sensor agent error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Capture blocks inside the agent until a finger is captured or the SDK
// capture timeout elapses.
func (c *SensorClient) Capture(ctx context.Context) (*CaptureResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/capture", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call sensor agent: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sensor agent error (status %d): %s", resp.StatusCode, string(body))
	}

	var result CaptureResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("capture failed: %s", result.Error)
	}
	return &result, nil
}

// Merge combines the three enrollment captures into one template.
func (c *SensorClient) Merge(ctx context.Context, templates [][]byte) ([]byte, error) {
	body, err := json.Marshal(MergeRequest{Templates: templates})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/merge", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call sensor agent: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sensor agent error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result MergeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("template merge failed: %s", result.Error)
	}
	return result.Template, nil
}

// Match scores the probe against every candidate in one round trip.
func (c *SensorClient) Match(ctx context.Context, probe []byte, candidates []MatchCandidate) ([]MatchScore, error) {
	body, err := json.Marshal(MatchRequest{Probe: probe, Candidates: candidates})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/match", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call sensor agent: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sensor agent error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result MatchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("template match failed: %s", result.Error)
	}
	return result.Scores, nil
}

// Health checks if the sensor agent is healthy
func (c *SensorClient) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call health API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// IsAvailable checks if the sensor agent and device are reachable
func (c *SensorClient) IsAvailable(ctx context.Context) bool {
	health, err := c.Health(ctx)
	if err != nil {
		return false
	}
	return health.Status == "ok"
}

func (c *SensorClient) postNoBody(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call sensor agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sensor agent error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}
