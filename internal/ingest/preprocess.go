package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"corectx/internal/model"
)

var (
	horizontalWS = regexp.MustCompile(`(?m)[\t\x0b\x0c\r ]+`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// normalizeWhitespace collapses horizontal whitespace runs and excess blank
// lines, and normalizes CRLF/CR to LF.
func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalWS.ReplaceAllString(s, " ")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// DetectModality resolves the effective modality for a source: an explicit
// hint wins, then MIME type, then URI suffix, then a text fallback.
func DetectModality(src Source) model.Modality {
	if model.ValidModality(src.Modality) {
		return src.Modality
	}
	switch {
	case strings.HasPrefix(src.MIME, "image/"):
		return model.ModalityImage
	case src.MIME == "application/pdf":
		return model.ModalityPDF
	case strings.HasPrefix(src.MIME, "text/html"), src.MIME == "application/xhtml+xml":
		return model.ModalityWeb
	}
	switch strings.ToLower(filepath.Ext(src.URI)) {
	case ".pdf":
		return model.ModalityPDF
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return model.ModalityImage
	case ".html", ".htm":
		return model.ModalityWeb
	}
	if strings.HasPrefix(src.URI, "http://") || strings.HasPrefix(src.URI, "https://") {
		return model.ModalityWeb
	}
	return model.ModalityText
}

// Fingerprint is the normalized content used for the dedup-on-hash check:
// the cleaned body when there is one, otherwise the URI+title.
func Fingerprint(extractedText string, src Source) string {
	text := normalizeWhitespace(extractedText)
	if text != "" {
		return text
	}
	return strings.TrimSpace(src.URI + "\x00" + src.Title)
}

// DocumentHash computes the content-address SHA-256(container_id:fingerprint).
func DocumentHash(containerID uuid.UUID, fingerprint string) string {
	h := sha256.New()
	h.Write([]byte(containerID.String()))
	h.Write([]byte{':'})
	h.Write([]byte(fingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// ChunkCacheKey is the embedding-cache lookup key for one chunk's text.
func ChunkCacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
