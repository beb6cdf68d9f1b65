package vertex

import (
	"bytes"
	"clipify-backend/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultMaxAttempts  = 90
	// Consecutive transient poll failures tolerated before giving up. Freshly
	// submitted operations can be invisible for the first few queries.
	transientRetries = 3
)

type (
	GenerationParams struct {
		AspectRatio string
		SampleCount int
		DurationSec int
	}

	// JobHandle identifies one in-flight long-running operation. It lives only
	// for the duration of the polling loop and is never persisted.
	JobHandle struct {
		OperationName string
		ModelID       string
		AttemptCount  int
		StartedAt     time.Time
	}

	VertexClient interface {
		Submit(ctx context.Context, prompt string, params GenerationParams) (*JobHandle, error)
		Wait(ctx context.Context, handle *JobHandle) (string, error)
		Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
	}

	vertexClient struct {
		httpClient    *http.Client
		endpoint      string
		apiKey        string
		model         string
		fallbackModel string
		pollInterval  time.Duration
		maxAttempts   int
	}
)

func NewVertexClient(endpoint, apiKey, model, fallbackModel string) VertexClient {
	return &vertexClient{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		endpoint:      strings.TrimSuffix(endpoint, "/"),
		apiKey:        apiKey,
		model:         model,
		fallbackModel: fallbackModel,
		pollInterval:  defaultPollInterval,
		maxAttempts:   defaultMaxAttempts,
	}
}

type (
	submitRequest struct {
		Instances  []submitInstance `json:"instances"`
		Parameters map[string]any   `json:"parameters,omitempty"`
	}

	submitInstance struct {
		Prompt string `json:"prompt"`
	}

	operationStatus struct {
		Name     string           `json:"name"`
		Done     bool             `json:"done"`
		Error    *operationError  `json:"error,omitempty"`
		Response *operationResult `json:"response,omitempty"`
	}

	operationError struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
)

// Submit starts a long-running generation against the primary model. When the
// provider signals quota pressure and a fallback model is configured, the
// submission is retried once against the fallback; any other failure is
// surfaced immediately.
func (v *vertexClient) Submit(ctx context.Context, prompt string, params GenerationParams) (*JobHandle, error) {
	handle, err := v.submitModel(ctx, v.model, prompt, params)
	if err == nil {
		return handle, nil
	}

	if errors.Is(err, domain.ErrUpstreamQuota) && v.fallbackModel != "" {
		return v.submitModel(ctx, v.fallbackModel, prompt, params)
	}

	return nil, err
}

func (v *vertexClient) submitModel(ctx context.Context, model, prompt string, params GenerationParams) (*JobHandle, error) {
	body := submitRequest{
		Instances: []submitInstance{{Prompt: prompt}},
		Parameters: map[string]any{
			"sampleCount": params.SampleCount,
		},
	}
	if params.AspectRatio != "" {
		body.Parameters["aspectRatio"] = params.AspectRatio
	}
	if params.DurationSec > 0 {
		body.Parameters["durationSeconds"] = params.DurationSec
	}

	url := fmt.Sprintf("%s/v1/models/%s:predictLongRunning", v.endpoint, model)
	var resp struct {
		Name string `json:"name"`
	}
	if err := v.postJSON(ctx, url, body, &resp); err != nil {
		return nil, err
	}
	if resp.Name == "" {
		return nil, fmt.Errorf("%w: submit returned no operation name", domain.ErrUpstreamFailed)
	}

	return &JobHandle{
		OperationName: resp.Name,
		ModelID:       model,
		StartedAt:     time.Now(),
	}, nil
}

// Wait polls the operation until it finishes, the attempt budget runs out or
// ctx is cancelled. It returns the base64-encoded result payload.
func (v *vertexClient) Wait(ctx context.Context, handle *JobHandle) (string, error) {
	transientLeft := transientRetries

	for handle.AttemptCount < v.maxAttempts {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(v.pollInterval):
		}
		handle.AttemptCount++

		status, err := v.fetchOperation(ctx, handle)
		if err != nil {
			if transientLeft > 0 {
				transientLeft--
				continue
			}
			return "", err
		}
		transientLeft = transientRetries

		if !status.Done {
			continue
		}

		if status.Error != nil {
			return "", fmt.Errorf("%w: %s", domain.ErrUpstreamFailed, status.Error.Message)
		}
		if status.Response == nil {
			return "", domain.ErrEmptyResultPayload
		}
		return ExtractPayload(status.Response)
	}

	return "", domain.ErrPollTimeout
}

func (v *vertexClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	handle, err := v.Submit(ctx, prompt, params)
	if err != nil {
		return "", err
	}
	return v.Wait(ctx, handle)
}

func (v *vertexClient) fetchOperation(ctx context.Context, handle *JobHandle) (*operationStatus, error) {
	url := fmt.Sprintf("%s/v1/models/%s:fetchPredictOperation", v.endpoint, handle.ModelID)
	body := map[string]string{"operationName": handle.OperationName}

	var status operationStatus
	if err := v.postJSON(ctx, url, body, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (v *vertexClient) postJSON(ctx context.Context, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", v.apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		if isQuotaError(resp.StatusCode, string(bodyBytes)) {
			return fmt.Errorf("%w: %s", domain.ErrUpstreamQuota, resp.Status)
		}
		return fmt.Errorf("%w: %s - %s", domain.ErrUpstreamFailed, resp.Status, string(bodyBytes))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func isQuotaError(statusCode int, body string) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(body, "RESOURCE_EXHAUSTED") || strings.Contains(body, "Quota exceeded")
}
