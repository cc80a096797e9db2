package graphquery

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"corectx/internal/corerr"
)

// AnthropicTranslator asks a Claude model for a graph query string, sharing
// AnthropicExtractor's client-construction idiom.
type AnthropicTranslator struct {
	sdk   anthropic.Client
	model string
}

func NewAnthropicTranslator(apiKey, model string) *AnthropicTranslator {
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	return &AnthropicTranslator{
		sdk:   anthropic.NewClient(option.WithAPIKey(strings.TrimSpace(apiKey))),
		model: model,
	}
}

func (a *AnthropicTranslator) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(translationPrompt(req))),
		},
	}
	resp, err := a.sdk.Messages.New(ctx, params)
	if err != nil {
		return "", corerr.Unavailable("anthropic translation call", err)
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return normalizeTranslated(sb.String(), req.K), nil
}
