package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawTextKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "c1/d1.txt", RawTextKey("c1", "d1"))
}

func TestOriginalKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "c1/d1/original/report.pdf", OriginalKey("c1", "d1", "report.pdf"))
	assert.Equal(t, "c1/d1/original/source", OriginalKey("c1", "d1", ""))
}

func TestThumbnailKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "c1/d1/thumbs/photo_thumb.jpg", ThumbnailKey("c1", "d1", "photo.png"))
	assert.Equal(t, "c1/d1/thumbs/source_thumb.jpg", ThumbnailKey("c1", "d1", ""))
}

func TestDocumentPrefix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "c1/d1/", DocumentPrefix("c1", "d1"))
}
