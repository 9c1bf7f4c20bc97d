package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompleter replays scripted results and records every request.
type fakeCompleter struct {
	mu       sync.Mutex
	results  []fakeResult
	requests []openai.ChatCompletionRequest
}

type fakeResult struct {
	content string
	err     error
	empty   bool
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if len(f.results) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("unexpected call")
	}
	res := f.results[0]
	f.results = f.results[1:]

	if res.err != nil {
		return openai.ChatCompletionResponse{}, res.err
	}
	if res.empty {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: res.content},
		}},
	}, nil
}

func decodedTestImage(t *testing.T) *DecodedImage {
	t.Helper()
	img, err := DecodeImage(pngBytes(t, testImage()))
	require.NoError(t, err)
	return img
}

func TestNewLLMServiceDefaults(t *testing.T) {
	svc := NewLLMService(&fakeCompleter{}, "", nil)
	assert.Equal(t, DefaultModel, svc.model)
	assert.NotNil(t, svc.log)
}

func TestBuildRequest(t *testing.T) {
	svc := NewLLMService(&fakeCompleter{}, "gpt-4o", nil)

	req, err := svc.BuildRequest(decodedTestImage(t))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, MaxTokens, req.MaxTokens)
	assert.InDelta(t, 0, req.Temperature, 1e-6)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "one valid JSON object")

	user := req.Messages[1]
	assert.Equal(t, openai.ChatMessageRoleUser, user.Role)
	require.Len(t, user.MultiContent, 2)
	assert.Equal(t, openai.ChatMessagePartTypeText, user.MultiContent[0].Type)
	for _, key := range EstimateKeys {
		assert.Contains(t, user.MultiContent[0].Text, `"`+key+`"`)
	}
	assert.Equal(t, openai.ChatMessagePartTypeImageURL, user.MultiContent[1].Type)
	require.NotNil(t, user.MultiContent[1].ImageURL)
	assert.True(t, strings.HasPrefix(user.MultiContent[1].ImageURL.URL, "data:image/jpeg;base64,"))
}

func TestQueryJSONStrictModeSucceeds(t *testing.T) {
	fake := &fakeCompleter{results: []fakeResult{{content: `{"food_name":"Apple"}`}}}
	svc := NewLLMService(fake, "gpt-4o", nil)

	raw, err := svc.QueryJSON(context.Background(), decodedTestImage(t))
	require.NoError(t, err)
	assert.Equal(t, `{"food_name":"Apple"}`, raw)

	require.Len(t, fake.requests, 1)
	assert.NotNil(t, fake.requests[0].ResponseFormat)
}

func TestQueryJSONFallsBackWithoutResponseFormat(t *testing.T) {
	fake := &fakeCompleter{results: []fakeResult{
		{err: errors.New("response_format is not supported with this model")},
		{content: `{"food_name":"Toast"}`},
	}}
	svc := NewLLMService(fake, "gpt-4o", nil)

	raw, err := svc.QueryJSON(context.Background(), decodedTestImage(t))
	require.NoError(t, err)
	assert.Equal(t, `{"food_name":"Toast"}`, raw)

	require.Len(t, fake.requests, 2)
	strict, relaxed := fake.requests[0], fake.requests[1]
	assert.NotNil(t, strict.ResponseFormat)
	assert.Nil(t, relaxed.ResponseFormat)

	// everything else is identical
	strict.ResponseFormat = nil
	assert.Equal(t, strict, relaxed)
}

func TestQueryJSONBothAttemptsFail(t *testing.T) {
	fake := &fakeCompleter{results: []fakeResult{
		{err: errors.New("bad response_format")},
		{err: errors.New("upstream unavailable")},
	}}
	svc := NewLLMService(fake, "gpt-4o", nil)

	raw, err := svc.QueryJSON(context.Background(), decodedTestImage(t))
	require.Error(t, err)
	assert.Empty(t, raw)
	assert.Equal(t, "upstream unavailable", err.Error())

	var modelErr *ModelError
	require.ErrorAs(t, err, &modelErr)
	require.Len(t, modelErr.Attempts, 2)
	assert.Equal(t, ModeJSON, modelErr.Attempts[0].Mode)
	assert.Equal(t, ModeText, modelErr.Attempts[1].Mode)
	assert.Len(t, fake.requests, 2, "no third attempt")
}

func TestQueryJSONNoChoices(t *testing.T) {
	fake := &fakeCompleter{results: []fakeResult{{empty: true}}}
	svc := NewLLMService(fake, "gpt-4o", nil)

	_, err := svc.QueryJSON(context.Background(), decodedTestImage(t))
	assert.ErrorIs(t, err, ErrNoChoices)
	assert.Len(t, fake.requests, 1, "an empty reply is not retried")
}

// TestQueryJSONOverHTTP drives the real go-openai client against a fake
// chat completions endpoint that rejects response_format.
func TestQueryJSONOverHTTP(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []map[string]any
	)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		if !assert.NoError(t, err) {
			return
		}
		var body map[string]any
		if !assert.NoError(t, json.Unmarshal(raw, &body)) {
			return
		}

		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if _, ok := body["response_format"]; ok {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"response_format is not supported","type":"invalid_request_error"}}`)
			return
		}
		fmt.Fprint(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"{\"food_name\":\"Apple\",\"calories\":95}"},"finish_reason":"stop"}]}`)
	}))
	defer ts.Close()

	svc := NewLLMService(NewOpenAIClient("test-key", ts.URL+"/v1", 5*time.Second), "gpt-4o", nil)

	raw, err := svc.QueryJSON(context.Background(), decodedTestImage(t))
	require.NoError(t, err)
	assert.Equal(t, `{"food_name":"Apple","calories":95}`, raw)

	require.Len(t, bodies, 2)
	strict := bodies[0]
	assert.Equal(t, "gpt-4o", strict["model"])
	assert.Equal(t, float64(MaxTokens), strict["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, strict["response_format"])
	temp, ok := strict["temperature"].(float64)
	require.True(t, ok, "temperature must be sent explicitly")
	assert.InDelta(t, 0, temp, 1e-6)

	messages, ok := strict["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	imagePart := parts[1].(map[string]any)
	assert.Equal(t, "image_url", imagePart["type"])
	url := imagePart["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))

	assert.NotContains(t, bodies[1], "response_format")
}

func TestQueryJSONOverHTTPSurfacesAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer ts.Close()

	svc := NewLLMService(NewOpenAIClient("bad-key", ts.URL+"/v1", 5*time.Second), "gpt-4o", nil)

	_, err := svc.QueryJSON(context.Background(), decodedTestImage(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key provided")

	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatusCode)
}
