package vertex

import (
	"clipify-backend/domain"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *vertexClient {
	return &vertexClient{
		httpClient:    &http.Client{Timeout: 5 * time.Second},
		endpoint:      serverURL,
		apiKey:        "test-key",
		model:         "veo-primary",
		fallbackModel: "veo-fallback",
		pollInterval:  time.Millisecond,
		maxAttempts:   10,
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestGenerateSubmitsThenPollsUntilDone(t *testing.T) {
	var polls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, ":predictLongRunning"):
			assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
			writeJSON(t, w, map[string]string{"name": "operations/op-123"})

		case strings.HasSuffix(r.URL.Path, ":fetchPredictOperation"):
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "operations/op-123", body["operationName"])

			if polls.Add(1) < 3 {
				writeJSON(t, w, map[string]any{"name": "operations/op-123", "done": false})
				return
			}
			writeJSON(t, w, map[string]any{
				"name": "operations/op-123",
				"done": true,
				"response": map[string]any{
					"predictions": []map[string]string{{"bytesBase64Encoded": "QUJD"}},
				},
			})

		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	payload, err := newTestClient(server.URL).Generate(context.Background(), "a lighthouse at dusk", GenerationParams{SampleCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "QUJD", payload)
	assert.EqualValues(t, 3, polls.Load())
}

func TestSubmitFallsBackOnQuota(t *testing.T) {
	var primaryCalls, fallbackCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "veo-primary:predictLongRunning"):
			primaryCalls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		case strings.Contains(r.URL.Path, "veo-fallback:predictLongRunning"):
			fallbackCalls.Add(1)
			writeJSON(t, w, map[string]string{"name": "operations/op-fb"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	handle, err := newTestClient(server.URL).Submit(context.Background(), "a storm over the sea", GenerationParams{SampleCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "veo-fallback", handle.ModelID)
	assert.Equal(t, "operations/op-fb", handle.OperationName)
	assert.EqualValues(t, 1, primaryCalls.Load())
	assert.EqualValues(t, 1, fallbackCalls.Load())
}

func TestSubmitQuotaErrorFromBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "veo-primary") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED","message":"Quota exceeded"}}`))
			return
		}
		writeJSON(t, w, map[string]string{"name": "operations/op-fb"})
	}))
	defer server.Close()

	handle, err := newTestClient(server.URL).Submit(context.Background(), "prompt", GenerationParams{SampleCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "veo-fallback", handle.ModelID)
}

func TestSubmitDoesNotFallBackOnOtherErrors(t *testing.T) {
	var fallbackCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "veo-fallback") {
			fallbackCalls.Add(1)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Submit(context.Background(), "prompt", GenerationParams{SampleCount: 1})
	assert.ErrorIs(t, err, domain.ErrUpstreamFailed)
	assert.EqualValues(t, 0, fallbackCalls.Load(), "only quota errors trigger the fallback model")
}

func TestSubmitWithoutFallbackSurfacesQuota(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.fallbackModel = ""

	_, err := client.Submit(context.Background(), "prompt", GenerationParams{SampleCount: 1})
	assert.ErrorIs(t, err, domain.ErrUpstreamQuota)
}

func TestWaitTimesOutAfterAttemptBudget(t *testing.T) {
	var polls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		writeJSON(t, w, map[string]any{"name": "operations/op-1", "done": false})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.maxAttempts = 4

	_, err := client.Wait(context.Background(), &JobHandle{OperationName: "operations/op-1", ModelID: "veo-primary"})
	assert.ErrorIs(t, err, domain.ErrPollTimeout)
	assert.EqualValues(t, 4, polls.Load())
}

func TestWaitToleratesTransientPollFailures(t *testing.T) {
	var polls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The first three polls fail as if the operation is not visible yet.
		if polls.Add(1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(t, w, map[string]any{
			"name": "operations/op-1",
			"done": true,
			"response": map[string]any{
				"videos": []map[string]string{{"bytesBase64Encoded": "QUJD"}},
			},
		})
	}))
	defer server.Close()

	payload, err := newTestClient(server.URL).Wait(context.Background(), &JobHandle{OperationName: "operations/op-1", ModelID: "veo-primary"})
	require.NoError(t, err)
	assert.Equal(t, "QUJD", payload)
	assert.EqualValues(t, 4, polls.Load())
}

func TestWaitGivesUpAfterPersistentPollFailures(t *testing.T) {
	var polls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Wait(context.Background(), &JobHandle{OperationName: "operations/op-1", ModelID: "veo-primary"})
	assert.ErrorIs(t, err, domain.ErrUpstreamFailed)
	assert.EqualValues(t, 4, polls.Load(), "three transient retries then surface the error")
}

func TestWaitSurfacesOperationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"name":  "operations/op-1",
			"done":  true,
			"error": map[string]any{"code": 13, "status": "INTERNAL", "message": "model exploded"},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Wait(context.Background(), &JobHandle{OperationName: "operations/op-1", ModelID: "veo-primary"})
	require.ErrorIs(t, err, domain.ErrUpstreamFailed)
	assert.Contains(t, err.Error(), "model exploded")
}

func TestWaitRejectsRemoteOnlyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"name": "operations/op-1",
			"done": true,
			"response": map[string]any{
				"videos": []map[string]string{{"gcsUri": "gs://bucket/out.mp4"}},
			},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Wait(context.Background(), &JobHandle{OperationName: "operations/op-1", ModelID: "veo-primary"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedResult)
}

func TestWaitStopsOnContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"name": "operations/op-1", "done": false})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.pollInterval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Wait(ctx, &JobHandle{OperationName: "operations/op-1", ModelID: "veo-primary"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubmitRejectsMissingOperationName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]string{})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.fallbackModel = ""

	_, err := client.Submit(context.Background(), "prompt", GenerationParams{SampleCount: 1})
	assert.ErrorIs(t, err, domain.ErrUpstreamFailed)
}
