package embedclient

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"corectx/internal/config"
)

// GenaiEmbedder is the alternate embedding provider, used primarily for
// image-modality embeddings where the configured OpenAI-compatible endpoint
// doesn't support multimodal input.
type GenaiEmbedder struct {
	client  *genai.Client
	model   string
	dim     int
	limiter *rateLimiter
}

func NewGenaiEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (*GenaiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-004"
	}
	return &GenaiEmbedder{client: client, model: model, dim: cfg.Dimensions, limiter: newRateLimiter(cfg.RateLimitRPS)}, nil
}

func (e *GenaiEmbedder) Name() string   { return e.model }
func (e *GenaiEmbedder) Dimension() int { return e.dim }

func (e *GenaiEmbedder) Ping(ctx context.Context) error {
	_, err := e.EmbedBatch(ctx, []string{"ping"})
	if err != nil {
		return errProviderUnavailable("genai", err)
	}
	return nil
}

func (e *GenaiEmbedder) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if err := e.limiter.wait(ctx); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(inputs))
	for i, text := range inputs {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	var cfg *genai.EmbedContentConfig
	if e.dim > 0 {
		cfg = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(e.dim))}
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, errProviderUnavailable("genai", err)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out[i] = Normalize(append([]float32(nil), emb.Values...))
	}
	return out, nil
}
