package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kaursimar9464/nutrisnap/backend/internal/metrics"
)

const (
	// DefaultModel is used when no model is configured
	DefaultModel = "gpt-4o"

	// MaxTokens caps the completion; the reply is a single small object
	MaxTokens = 200

	systemPrompt = "You only ever respond with one valid JSON object. No prose."

	analysisPrompt = `
You are a nutrition expert. Return ONLY a single JSON object with EXACTLY these keys:
"food_name", "serving_description", "calories", "fat_grams", "protein_grams", "confidence_level".
If you cannot estimate a value, use null. Do not include any other keys or text.
Analyze the image content to estimate typical values for a normal serving.
`
)

// ErrNoChoices is returned when the model API answers without any choice
var ErrNoChoices = errors.New("no choices in model response")

// ResponseMode is the output constraint requested from the model
type ResponseMode string

const (
	// ModeJSON asks the API to enforce a JSON object reply
	ModeJSON ResponseMode = "json"
	// ModeText sends the same request without response_format
	ModeText ResponseMode = "text"
)

// AttemptError is the failure of one model call in a given mode
type AttemptError struct {
	Mode ResponseMode
	Err  error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s mode: %v", e.Mode, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// ModelError reports that every attempt failed. Its message is the final
// attempt's error, which is what callers surface to clients.
type ModelError struct {
	Attempts []*AttemptError
}

func (e *ModelError) Error() string {
	if len(e.Attempts) == 0 {
		return "model call failed"
	}
	return e.Attempts[len(e.Attempts)-1].Err.Error()
}

func (e *ModelError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a)
	}
	return errs
}

// LLMService asks a multimodal chat model for a nutrition estimate
type LLMService struct {
	client ChatCompleter
	model  string
	log    *zap.Logger
}

// NewOpenAIClient builds a go-openai client. baseURL may be empty; a zero
// timeout disables the per-attempt deadline.
func NewOpenAIClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(cfg)
}

// NewLLMService creates a new LLMService instance
func NewLLMService(client ChatCompleter, model string, log *zap.Logger) *LLMService {
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LLMService{
		client: client,
		model:  model,
		log:    log,
	}
}

// BuildRequest assembles the strict-JSON chat request for an image
func (s *LLMService) BuildRequest(img *DecodedImage) (openai.ChatCompletionRequest, error) {
	dataURL, err := img.DataURL()
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}

	return openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: analysisPrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
		// temperature is omitempty in go-openai; a literal 0 would fall back
		// to the API default of 1.
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}, nil
}

// QueryJSON returns the model's raw reply for the image. The call is made in
// JSON mode first; if that call fails it is repeated once without the
// response format. When both fail the result is a *ModelError.
func (s *LLMService) QueryJSON(ctx context.Context, img *DecodedImage) (string, error) {
	req, err := s.BuildRequest(img)
	if err != nil {
		return "", err
	}

	resp, err := s.attempt(ctx, req, ModeJSON)
	if err != nil {
		first := &AttemptError{Mode: ModeJSON, Err: err}
		s.log.Warn("JSON mode call failed, retrying without response format",
			zap.String("model", s.model), zap.Error(err))
		metrics.JSONModeFallbacksTotal.Inc()

		req.ResponseFormat = nil
		resp, err = s.attempt(ctx, req, ModeText)
		if err != nil {
			return "", &ModelError{Attempts: []*AttemptError{first, {Mode: ModeText, Err: err}}}
		}
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *LLMService) attempt(ctx context.Context, req openai.ChatCompletionRequest, mode ResponseMode) (openai.ChatCompletionResponse, error) {
	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	metrics.ObserveModelCall(string(mode), start, err)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	s.log.Debug("model call succeeded",
		zap.String("mode", string(mode)),
		zap.Duration("latency", time.Since(start)),
		zap.Int("choices", len(resp.Choices)))
	return resp, nil
}
