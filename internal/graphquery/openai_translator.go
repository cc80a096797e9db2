package graphquery

import (
	"context"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"corectx/internal/corerr"
)

// OpenAITranslator mirrors AnthropicTranslator against the chat-completions
// API, sharing OpenAIExtractor's client-construction idiom.
type OpenAITranslator struct {
	sdk   sdk.Client
	model string
}

func NewOpenAITranslator(apiKey, model string) *OpenAITranslator {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAITranslator{
		sdk:   sdk.NewClient(option.WithAPIKey(strings.TrimSpace(apiKey))),
		model: model,
	}
}

func (o *OpenAITranslator) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(o.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(translationPrompt(req)),
		},
	}
	comp, err := o.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", corerr.Unavailable("openai translation call", err)
	}
	if len(comp.Choices) == 0 {
		return "", corerr.Internal("empty translation response", nil)
	}
	return normalizeTranslated(comp.Choices[0].Message.Content, req.K), nil
}
