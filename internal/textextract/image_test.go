package textextract

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestExtractImage_ScalesDownLargerSide(t *testing.T) {
	t.Parallel()
	data := encodeTestPNG(t, 800, 400)

	res, err := ExtractImage(data, 200)
	require.NoError(t, err)
	require.Equal(t, 800, res.OriginalWidth)
	require.Equal(t, 400, res.OriginalHeight)
	require.NotEmpty(t, res.Thumbnail)

	out, _, err := image.Decode(bytes.NewReader(res.Thumbnail))
	require.NoError(t, err)
	require.Equal(t, 200, out.Bounds().Dx())
	require.Equal(t, 100, out.Bounds().Dy())
}

func TestExtractImage_SmallerThanMaxUnchanged(t *testing.T) {
	t.Parallel()
	data := encodeTestPNG(t, 50, 50)

	res, err := ExtractImage(data, 200)
	require.NoError(t, err)

	out, _, err := image.Decode(bytes.NewReader(res.Thumbnail))
	require.NoError(t, err)
	require.Equal(t, 50, out.Bounds().Dx())
	require.Equal(t, 50, out.Bounds().Dy())
}
