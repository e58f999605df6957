package generator

import (
	"actorbot/internal/core/domain"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = srv.URL + "/v1"

	return &OpenAI{
		client:    openai.NewClientWithConfig(config),
		limiter:   rate.NewLimiter(rate.Inf, 1),
		model:     defaultCompletionModel,
		imageSize: openai.CreateImageSize256x256,
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestOpenAI_Complete(t *testing.T) {
	var got map[string]any

	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		writeJSON(t, w, http.StatusOK, map[string]any{
			"model":   defaultCompletionModel,
			"choices": []map[string]any{{"text": " Arr, matey!", "index": 0}},
		})
	})

	reply, err := o.Complete(t.Context(), domain.CompletionRequest{
		Prompt:    "System: Conversation:\n<|endoftext|>Bob:",
		Config:    domain.GenerationConfig{Temperature: 0.5, TopP: 1, MaxTokens: 42},
		Stop:      domain.StopSequences(),
		LogitBias: domain.DefaultLogitBias(),
		User:      "42",
	})
	require.NoError(t, err)
	assert.Equal(t, " Arr, matey!", reply)

	assert.Equal(t, defaultCompletionModel, got["model"])
	assert.Equal(t, "System: Conversation:\n<|endoftext|>Bob:", got["prompt"])
	assert.InDelta(t, 42, got["max_tokens"], 0)
	assert.InDelta(t, 0.5, got["temperature"], 1e-6)
	assert.Equal(t, []any{"<|endoftext|>"}, got["stop"])
	assert.Equal(t, map[string]any{"25": float64(-100), "1058": float64(-100)}, got["logit_bias"])
	assert.Equal(t, "42", got["user"])
}

func TestOpenAI_CompleteZeroSampling(t *testing.T) {
	var got map[string]any

	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"choices": []map[string]any{{"text": "arr", "index": 0}},
		})
	})

	_, err := o.Complete(t.Context(), domain.CompletionRequest{
		Prompt: "Bob:",
		Config: domain.GenerationConfig{Temperature: 0, TopP: 0, MaxTokens: 42},
	})
	require.NoError(t, err)

	require.Contains(t, got, "temperature")
	require.Contains(t, got, "top_p")
	assert.InDelta(t, 0, got["temperature"], 1e-6)
	assert.InDelta(t, 0, got["top_p"], 1e-6)
}

func TestOpenAI_CompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
		check  func(t *testing.T, err error)
	}{
		{
			name:   "context length by code",
			status: http.StatusBadRequest,
			body: map[string]any{"error": map[string]any{
				"message": "This model's maximum context length is 4097 tokens.",
				"type":    "invalid_request_error",
				"code":    "context_length_exceeded",
			}},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, domain.ErrContextLengthExceeded)
			},
		},
		{
			name:   "context length by message",
			status: http.StatusBadRequest,
			body: map[string]any{"error": map[string]any{
				"message": "This model's maximum context length is 4097 tokens, however you requested 5000.",
				"type":    "invalid_request_error",
			}},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, domain.ErrContextLengthExceeded)
			},
		},
		{
			name:   "invalid request",
			status: http.StatusBadRequest,
			body: map[string]any{"error": map[string]any{
				"message": "Invalid key in logit_bias",
				"type":    "invalid_request_error",
			}},
			check: func(t *testing.T, err error) {
				var invalid *domain.InvalidRequestError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, "Invalid key in logit_bias", invalid.Message)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body: map[string]any{"error": map[string]any{
				"message": "The server had an error",
				"type":    "server_error",
			}},
			check: func(t *testing.T, err error) {
				var invalid *domain.InvalidRequestError
				require.Error(t, err)
				assert.NotErrorIs(t, err, domain.ErrContextLengthExceeded)
				assert.False(t, errors.As(err, &invalid))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, tt.status, tt.body)
			})

			reply, err := o.Complete(t.Context(), domain.CompletionRequest{Prompt: "Bob:"})
			assert.Empty(t, reply)
			tt.check(t, err)
		})
	}
}

func TestOpenAI_CompleteEmptyPrompt(t *testing.T) {
	o := newTestOpenAI(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := o.Complete(t.Context(), domain.CompletionRequest{})
	require.ErrorIs(t, err, domain.ErrEmptyPrompt)
}

func TestOpenAI_Moderate(t *testing.T) {
	var got map[string]any

	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/moderations", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":    "modr-1",
			"model": "text-moderation-latest",
			"results": []map[string]any{{
				"flagged": true,
				"category_scores": map[string]any{
					"hate":             0.01,
					"hate/threatening": 0.02,
					"self-harm":        0.03,
					"sexual":           0.04,
					"sexual/minors":    0.05,
					"violence":         0.96,
					"violence/graphic": 0.5,
				},
			}},
		})
	})

	scores, err := o.Moderate(t.Context(), "I will fight you", "alice")
	require.NoError(t, err)

	assert.Equal(t, "I will fight you", got["input"])
	assert.InDelta(t, 0.96, scores[domain.CategoryViolence], 1e-6)
	assert.InDelta(t, 0.5, scores[domain.CategoryViolenceGraphic], 1e-6)
	assert.InDelta(t, 0.02, scores[domain.CategoryHateThreatening], 1e-6)
	assert.InDelta(t, 0.05, scores[domain.CategorySexualMinors], 1e-6)
	assert.Len(t, scores, 7)

	verdict := domain.Classify(scores, domain.DefaultBlockThresholds(), domain.DefaultFlagThresholds())
	assert.True(t, verdict.IsBlocked())
}

func TestOpenAI_ModerateNoResults(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"results": []any{}})
	})

	_, err := o.Moderate(t.Context(), "hi", "alice")
	require.Error(t, err)
}

func TestOpenAI_GenerateImage(t *testing.T) {
	var got map[string]any
	png := []byte{0x89, 'P', 'N', 'G'}

	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		writeJSON(t, w, http.StatusOK, map[string]any{
			"created": 1,
			"data":    []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
		})
	})

	image, err := o.GenerateImage(t.Context(), "a red dragon", "watercolor")
	require.NoError(t, err)
	assert.Equal(t, png, image)

	assert.Equal(t, "a red dragon, watercolor", got["prompt"])
	assert.Equal(t, "256x256", got["size"])
	assert.Equal(t, "b64_json", got["response_format"])
	assert.InDelta(t, 1, got["n"], 0)
}

func TestOpenAI_GenerateImageEmpty(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"created": 1, "data": []any{}})
	})

	_, err := o.GenerateImage(t.Context(), "a cat", "")
	require.ErrorIs(t, err, domain.ErrEmptyImage)
}

func TestOpenAI_GenerateImageURLFallback(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"created": 1,
			"data":    []map[string]any{{"url": srv.URL + "/files/dragon.png"}},
		})
	})
	mux.HandleFunc("/files/dragon.png", func(w http.ResponseWriter, _ *http.Request) {
		_, err := w.Write(png)
		assert.NoError(t, err)
	})

	config := openai.DefaultConfig("test-key")
	config.BaseURL = srv.URL + "/v1"
	o := &OpenAI{
		client:    openai.NewClientWithConfig(config),
		limiter:   rate.NewLimiter(rate.Inf, 1),
		imageSize: openai.CreateImageSize256x256,
	}

	image, err := o.GenerateImage(t.Context(), "a red dragon", "")
	require.NoError(t, err)
	assert.Equal(t, png, image)
}

func TestImagePrompt(t *testing.T) {
	assert.Equal(t, "a cat", imagePrompt("a cat", ""))
	assert.Equal(t, "a cat", imagePrompt("a cat", "  "))
	assert.Equal(t, "a cat, pixel art", imagePrompt("a cat", "pixel art"))
}
