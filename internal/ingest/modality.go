package ingest

import (
	"context"

	"corectx/internal/manifest"
	"corectx/internal/model"
	"corectx/internal/textextract"
)

// extraction is what one modality strategy produces: the text to
// fingerprint/chunk, whether extraction was degraded, the original bytes
// (PDF and image) and, for images, a generated thumbnail to store.
type extraction struct {
	Text      string
	Degraded  bool
	Original  []byte
	Thumbnail []byte
}

// extract dispatches to the modality-specific strategy. Each strategy
// returns an extraction and an error; PDF and image strategies also fill
// in the bytes to persist to the object store.
func (p *Pipeline) extract(ctx context.Context, src Source, modality model.Modality, limits manifest.Limits, img manifest.ImagePolicy) (extraction, error) {
	switch modality {
	case model.ModalityText:
		return extraction{Text: src.textBody(), Degraded: false}, nil
	case model.ModalityPDF:
		return p.extractPDF(ctx, src, limits)
	case model.ModalityImage:
		return p.extractImage(ctx, src, img)
	case model.ModalityWeb:
		return p.extractWeb(ctx, src)
	default:
		return extraction{Text: src.textBody(), Degraded: false}, nil
	}
}

// textBody returns the source's textual content: inline bytes as a string
// when present (direct text submission), else empty — a web/pdf/image
// source's text always comes from its own extractor.
func (s Source) textBody() string {
	if len(s.Inline) > 0 {
		return string(s.Inline)
	}
	return ""
}

func (p *Pipeline) extractPDF(ctx context.Context, src Source, limits manifest.Limits) (extraction, error) {
	data := src.Inline
	if len(data) == 0 {
		fetched, err := textextract.FetchBytes(ctx, src.URI, limits.MaxSizeBytes, 0)
		if err != nil {
			return extraction{}, err
		}
		data = fetched
	}
	res, err := textextract.ExtractPDF(data, limits.MaxPDFPages)
	if err != nil {
		return extraction{Text: src.URI, Degraded: true}, nil
	}
	if res.Degraded {
		// no text layer: the URI becomes the single placeholder chunk
		return extraction{Text: src.URI, Degraded: true, Original: data}, nil
	}
	return extraction{Text: res.Text, Degraded: res.Degraded, Original: data}, nil
}

func (p *Pipeline) extractImage(ctx context.Context, src Source, img manifest.ImagePolicy) (extraction, error) {
	data := src.Inline
	if len(data) == 0 {
		fetched, err := textextract.FetchBytes(ctx, src.URI, 0, 0)
		if err != nil {
			return extraction{}, err
		}
		data = fetched
	}
	maxEdge := img.ThumbnailMaxEdge
	if maxEdge <= 0 {
		maxEdge = 2048
	}
	res, err := textextract.ExtractImage(data, maxEdge)
	if err != nil {
		return extraction{Degraded: true, Original: data}, nil
	}
	return extraction{Degraded: false, Original: data, Thumbnail: res.Thumbnail}, nil
}

func (p *Pipeline) extractWeb(ctx context.Context, src Source) (extraction, error) {
	res, err := p.webFetcher.Fetch(ctx, src.URI)
	if err != nil {
		return extraction{}, err
	}
	return extraction{Text: res.Markdown, Degraded: res.Degraded}, nil
}
