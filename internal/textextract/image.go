package textextract

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	// register decoders for common formats referenced by thumbnail input
	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// ImageResult carries a generated thumbnail plus the original decoded
// dimensions. Images carry no extractable text; the thumbnail is stored
// alongside the original so retrieval results can render a preview.
type ImageResult struct {
	Thumbnail     []byte
	OriginalWidth int
	OriginalHeight int
}

// ExtractImage decodes image bytes and produces an aspect-preserving JPEG
// thumbnail bounded by maxDim on its longest side.
func ExtractImage(data []byte, maxDim int) (ImageResult, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ImageResult{}, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	tw, th := scaledDims(w, h, maxDim)

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return ImageResult{}, fmt.Errorf("encode thumbnail: %w", err)
	}

	return ImageResult{Thumbnail: buf.Bytes(), OriginalWidth: w, OriginalHeight: h}, nil
}

func scaledDims(w, h, maxDim int) (int, int) {
	if maxDim <= 0 {
		maxDim = 512
	}
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w >= h {
		ratio := float64(maxDim) / float64(w)
		return maxDim, max1(int(float64(h) * ratio))
	}
	ratio := float64(maxDim) / float64(h)
	return max1(int(float64(w) * ratio)), maxDim
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
