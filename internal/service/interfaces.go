package service

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// ChatCompleter is the part of the model API the service needs.
// *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NutritionAnalyzer turns a decoded photo into the model's raw reply
type NutritionAnalyzer interface {
	QueryJSON(ctx context.Context, img *DecodedImage) (string, error)
}
