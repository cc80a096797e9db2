package graphquery

import (
	"context"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"corectx/internal/corerr"
)

// OpenAIExtractor mirrors AnthropicExtractor against the chat-completions
// API, grounded on the teacher's internal/llm/openai request shape.
type OpenAIExtractor struct {
	sdk   sdk.Client
	model string
}

func NewOpenAIExtractor(apiKey, model string) *OpenAIExtractor {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIExtractor{
		sdk:   sdk.NewClient(option.WithAPIKey(strings.TrimSpace(apiKey))),
		model: model,
	}
}

func (o *OpenAIExtractor) Extract(ctx context.Context, text, lang string) (ExtractionResult, error) {
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(o.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(extractionPrompt(text, lang)),
		},
	}
	comp, err := o.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return ExtractionResult{}, corerr.Unavailable("openai extraction call", err)
	}
	if len(comp.Choices) == 0 {
		return ExtractionResult{}, nil
	}
	return parseExtractionJSON(comp.Choices[0].Message.Content)
}
