package graphquery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"corectx/internal/corerr"
)

// AnthropicExtractor asks a Claude model for {entities, relations} JSON
// constrained to the fixed type vocabulary, mirroring the teacher's
// internal/llm/anthropic request-construction style.
type AnthropicExtractor struct {
	sdk   anthropic.Client
	model string
}

func NewAnthropicExtractor(apiKey, model string) *AnthropicExtractor {
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	return &AnthropicExtractor{
		sdk:   anthropic.NewClient(option.WithAPIKey(strings.TrimSpace(apiKey))),
		model: model,
	}
}

type extractionWire struct {
	Entities []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"entities"`
	Relations []struct {
		Source string `json:"source"`
		Target string `json:"target"`
		Type   string `json:"type"`
	} `json:"relations"`
}

func extractionPrompt(text, lang string) string {
	return fmt.Sprintf(`Extract entities and relations from the following %s text.
Respond with JSON only, matching exactly this shape:
{"entities":[{"id":"snake_case_id","type":"Person|Organization|Project|Document|Decision|Product|Team|Risk|Concept|Other","name":"Display Name"}],
 "relations":[{"source":"entity_id","target":"entity_id","type":"WORKS_ON|OWNS|MANAGES|AUTHORED_BY|MENTIONS|USES|DEPENDS_ON|HAS_DECISION|AFFECTS|PART_OF|IMPLEMENTS|RELATED_TO"}]}
Text:
%s`, lang, text)
}

func parseExtractionJSON(raw string) (ExtractionResult, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "{"); i > 0 {
		raw = raw[i:]
	}
	if j := strings.LastIndex(raw, "}"); j >= 0 && j < len(raw)-1 {
		raw = raw[:j+1]
	}
	var wire extractionWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return ExtractionResult{}, corerr.Wrap(corerr.KindInvalid, "parse extraction response", err)
	}
	out := ExtractionResult{
		Entities:  make([]Entity, 0, len(wire.Entities)),
		Relations: make([]Relation, 0, len(wire.Relations)),
	}
	for _, e := range wire.Entities {
		if e.ID == "" {
			continue
		}
		out.Entities = append(out.Entities, Entity{ID: e.ID, Type: NormalizeNodeType(e.Type), Name: e.Name})
	}
	for _, r := range wire.Relations {
		if r.Source == "" || r.Target == "" {
			continue
		}
		out.Relations = append(out.Relations, Relation{SourceID: r.Source, TargetID: r.Target, Type: NormalizeRelationType(r.Type)})
	}
	return out, nil
}

func (a *AnthropicExtractor) Extract(ctx context.Context, text, lang string) (ExtractionResult, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(extractionPrompt(text, lang))),
		},
	}
	resp, err := a.sdk.Messages.New(ctx, params)
	if err != nil {
		return ExtractionResult{}, corerr.Unavailable("anthropic extraction call", err)
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return parseExtractionJSON(sb.String())
}
