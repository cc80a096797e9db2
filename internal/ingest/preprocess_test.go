package ingest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/model"
)

func TestNormalizeWhitespace_CollapsesAndTrims(t *testing.T) {
	t.Parallel()

	in := "line one\r\n\r\n\r\n\r\nline   two\t\t\r"
	require.Equal(t, "line one\n\nline two", normalizeWhitespace(in))
}

func TestDetectModality_PrecedenceOrder(t *testing.T) {
	t.Parallel()

	require.Equal(t, model.ModalityImage, DetectModality(Source{Modality: model.ModalityImage, MIME: "application/pdf"}))
	require.Equal(t, model.ModalityPDF, DetectModality(Source{MIME: "application/pdf"}))
	require.Equal(t, model.ModalityImage, DetectModality(Source{URI: "photo.PNG"}))
	require.Equal(t, model.ModalityWeb, DetectModality(Source{URI: "https://example.com/page"}))
	require.Equal(t, model.ModalityText, DetectModality(Source{URI: "notes.txt"}))
}

func TestFingerprint_FallsBackToURIAndTitle(t *testing.T) {
	t.Parallel()

	require.Equal(t, "hello world", Fingerprint("  hello   world  ", Source{}))
	require.Equal(t, "https://x\x00Title", Fingerprint("   ", Source{URI: "https://x", Title: "Title"}))
}

func TestDocumentHash_StableForSameInputs(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	a := DocumentHash(id, "fingerprint")
	b := DocumentHash(id, "fingerprint")
	require.Equal(t, a, b)
	require.NotEqual(t, a, DocumentHash(uuid.New(), "fingerprint"))
}

func TestChunkCacheKey_DiffersPerText(t *testing.T) {
	t.Parallel()

	require.NotEqual(t, ChunkCacheKey("a"), ChunkCacheKey("b"))
	require.Equal(t, ChunkCacheKey("a"), ChunkCacheKey("a"))
}
