package embedclient

import (
	"context"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"corectx/internal/config"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint (OpenAI
// itself, or any server implementing the same wire format, pointed at via
// cfg.Host).
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dim       int
	batchSize int
	limiter   *rateLimiter
}

func NewOpenAIEmbedder(cfg config.EmbeddingConfig) *OpenAIEmbedder {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Host != "" {
		opts = append(opts, option.WithBaseURL(cfg.Host))
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 32
	}
	return &OpenAIEmbedder{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		dim:       cfg.Dimensions,
		batchSize: batch,
		limiter:   newRateLimiter(cfg.RateLimitRPS),
	}
}

func (e *OpenAIEmbedder) Name() string   { return e.model }
func (e *OpenAIEmbedder) Dimension() int { return e.dim }

func (e *OpenAIEmbedder) Ping(ctx context.Context) error {
	_, err := e.EmbedBatch(ctx, []string{"ping"})
	if err != nil {
		return errProviderUnavailable("openai", err)
	}
	return nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += e.batchSize {
		end := start + e.batchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		vecs, err := e.embedOne(ctx, inputs[start:end])
		if err != nil {
			return out, errProviderUnavailable("openai", err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedOne(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.wait(ctx); err != nil {
		return nil, err
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if e.dim > 0 {
		params.Dimensions = openai.Int(int64(e.dim))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		v := make([]float32, len(d.Embedding))
		for j, x := range d.Embedding {
			v[j] = float32(x)
		}
		out[i] = Normalize(v)
	}
	return out, nil
}
