package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"worksense/backend/config"
	"worksense/backend/logging"
	"worksense/backend/metrics"
)

var (
	// ErrNotConfigured is returned when GENERATOR_URL is missing. Only the
	// generation path fails; the rest of the service is unaffected.
	ErrNotConfigured = errors.New("generator URL is not configured")

	// ErrBadResponse covers malformed generator output: unparseable JSON or
	// a missing top-level key.
	ErrBadResponse = errors.New("generator returned a malformed response")

	// ErrUnavailable covers transport failures, non-2xx responses and an
	// open circuit breaker.
	ErrUnavailable = errors.New("generator unavailable")
)

// GeneratorClient calls the external LLM-backed suggestion service. Calls go
// through a circuit breaker and use a fixed timeout; there are no retries,
// the operator re-triggers generation from the UI.
type GeneratorClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewGeneratorClient(cfg *config.Config) *GeneratorClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeneratorCB",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	return &GeneratorClient{
		baseURL: cfg.GeneratorURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.GeneratorTimeout) * time.Second,
		},
		breaker: breaker,
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text    string `json:"text"`
	Message string `json:"message"`
}

// Generate sends the prompt and returns the raw response text. kind is the
// metrics label ("epics" or "stories").
func (c *GeneratorClient) Generate(ctx context.Context, kind, prompt string) (string, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		start := time.Now()

		body, err := json.Marshal(generateRequest{Prompt: prompt})
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordGeneratorLatency(kind, "error", time.Since(start))
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		var decoded generateResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && resp.StatusCode < 300 {
			metrics.RecordGeneratorLatency(kind, "decode_error", time.Since(start))
			return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			metrics.RecordGeneratorLatency(kind, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))
			if decoded.Message != "" {
				return nil, fmt.Errorf("%w: %s", ErrUnavailable, decoded.Message)
			}
			return nil, fmt.Errorf("%w: upstream status %d", ErrUnavailable, resp.StatusCode)
		}

		metrics.RecordGeneratorLatency(kind, "success", time.Since(start))
		return decoded.Text, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", err
	}

	return result.(string), nil
}
