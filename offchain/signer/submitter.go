package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/guru-fund/fundd/x/fund/types"
)

// PayloadSubmitter defines the interface for submitting signed payloads
type PayloadSubmitter interface {
	// SubmitPayloads submits a batch of signed payloads
	SubmitPayloads(ctx context.Context, payloads []*IssuedPayload) error

	// GetStatus returns the submitter status
	GetStatus() SubmitterStatus
}

// SubmitterStatus represents the status of a submitter
type SubmitterStatus struct {
	Connected         bool
	PendingCount      int
	LastSubmitTime    time.Time
	LastError         string
	TotalSubmissions  int64
	FailedSubmissions int64
}

// MockSubmitter is a mock implementation for testing
type MockSubmitter struct {
	mu              sync.Mutex
	payloads        []*IssuedPayload
	status          SubmitterStatus
	simulateFailure bool
}

// NewMockSubmitter creates a new mock submitter
func NewMockSubmitter() *MockSubmitter {
	return &MockSubmitter{
		payloads: make([]*IssuedPayload, 0),
		status: SubmitterStatus{
			Connected: true,
		},
	}
}

// SubmitPayloads records payloads (mock implementation)
func (s *MockSubmitter) SubmitPayloads(ctx context.Context, payloads []*IssuedPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.simulateFailure {
		s.status.FailedSubmissions++
		s.status.LastError = "simulated failure"
		return fmt.Errorf("simulated failure")
	}

	s.payloads = append(s.payloads, payloads...)
	s.status.TotalSubmissions++
	s.status.LastSubmitTime = time.Now()

	return nil
}

// GetStatus returns the mock submitter status
func (s *MockSubmitter) GetStatus() SubmitterStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// GetSubmittedPayloads returns all submitted payloads (for testing)
func (s *MockSubmitter) GetSubmittedPayloads() []*IssuedPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*IssuedPayload, len(s.payloads))
	copy(result, s.payloads)
	return result
}

// SetSimulateFailure enables or disables failure simulation
func (s *MockSubmitter) SetSimulateFailure(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateFailure = fail
}

// Clear clears all submitted data (for testing)
func (s *MockSubmitter) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = make([]*IssuedPayload, 0)
}

// HTTPSubmitter posts signed payloads to the fund API
type HTTPSubmitter struct {
	baseURL       string
	client        *http.Client
	retryAttempts int
	retryDelay    time.Duration

	mu     sync.Mutex
	status SubmitterStatus
}

// HTTPSubmitterConfig holds configuration for HTTPSubmitter
type HTTPSubmitterConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultHTTPSubmitterConfig returns default configuration
func DefaultHTTPSubmitterConfig() *HTTPSubmitterConfig {
	return &HTTPSubmitterConfig{
		BaseURL:       "http://localhost:8080",
		Timeout:       10 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// NewHTTPSubmitter creates a new HTTP submitter
func NewHTTPSubmitter(config *HTTPSubmitterConfig) *HTTPSubmitter {
	if config == nil {
		config = DefaultHTTPSubmitterConfig()
	}

	return &HTTPSubmitter{
		baseURL:       config.BaseURL,
		client:        &http.Client{Timeout: config.Timeout},
		retryAttempts: config.RetryAttempts,
		retryDelay:    config.RetryDelay,
		status: SubmitterStatus{
			Connected: true,
		},
	}
}

// SubmitPayloads posts each payload to its operation endpoint
func (s *HTTPSubmitter) SubmitPayloads(ctx context.Context, payloads []*IssuedPayload) error {
	if len(payloads) == 0 {
		return nil
	}

	s.mu.Lock()
	s.status.PendingCount = len(payloads)
	s.mu.Unlock()

	for _, p := range payloads {
		if err := s.submitWithRetry(ctx, p); err != nil {
			s.mu.Lock()
			s.status.FailedSubmissions++
			s.status.LastError = err.Error()
			s.mu.Unlock()
			return fmt.Errorf("failed to submit payload %s: %w", p.ID, err)
		}
	}

	s.mu.Lock()
	s.status.TotalSubmissions++
	s.status.LastSubmitTime = time.Now()
	s.status.PendingCount = 0
	s.mu.Unlock()

	return nil
}

// submitWithRetry submits a payload with retry logic
func (s *HTTPSubmitter) submitWithRetry(ctx context.Context, p *IssuedPayload) error {
	var lastErr error
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if err := s.submit(ctx, p); err != nil {
			lastErr = err
			log.Printf("Payload submission attempt %d failed: %v", attempt+1, err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryDelay):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all retry attempts failed: %w", lastErr)
}

// submit posts a single payload
func (s *HTTPSubmitter) submit(ctx context.Context, p *IssuedPayload) error {
	endpoint, err := endpointFor(p.Action)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]interface{}{
		"account":    p.Account,
		"data":       p.Payload.Data,
		"signature":  p.Payload.Signature,
		"expires_at": p.Payload.ExpiresAt,
		"supplied":   p.Supplied,
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("server error: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		// Rejections are final, do not retry
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("Payload %s rejected: %s %s", p.ID, resp.Status, string(msg))
	}
	return nil
}

// endpointFor maps an action to its API endpoint
func endpointFor(action types.ActionType) (string, error) {
	switch action {
	case types.ActionDeposit:
		return "/v1/fund/deposit", nil
	case types.ActionWithdraw:
		return "/v1/fund/withdraw", nil
	default:
		return "", fmt.Errorf("no submission endpoint for action %d", action)
	}
}

// GetStatus returns the submitter status
func (s *HTTPSubmitter) GetStatus() SubmitterStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetBaseURL updates the API base URL
func (s *HTTPSubmitter) SetBaseURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = url
}
