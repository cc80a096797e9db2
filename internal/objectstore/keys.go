package objectstore

import (
	"path"
	"strings"
)

// Key-naming convention for this store: every object lives under its
// container and document, mirroring the container_id/document_id/chunk_id
// scoping the relational and vector stores use. The teacher's object
// store has no notion of a document at all — callers pass it opaque
// keys — so this is the seam where that domain-agnostic interface picks
// up corectx's layout.

// RawTextKey is where a document's extracted plain text is stored:
// <container_id>/<doc_id>.txt.
func RawTextKey(containerID, docID string) string {
	return path.Join(containerID, docID+".txt")
}

// OriginalKey is where a document's original source bytes are stored:
// <container_id>/<doc_id>/original/<filename>.
func OriginalKey(containerID, docID, filename string) string {
	if filename == "" {
		filename = "source"
	}
	return path.Join(containerID, docID, "original", filename)
}

// ThumbnailKey is where an image document's generated thumbnail is
// stored: <container_id>/<doc_id>/thumbs/<stem>_thumb.jpg.
func ThumbnailKey(containerID, docID, filename string) string {
	stem := strings.TrimSuffix(filename, path.Ext(filename))
	if stem == "" {
		stem = "source"
	}
	return path.Join(containerID, docID, "thumbs", stem+"_thumb.jpg")
}

// DocumentPrefix returns the key prefix covering a document's original/ and
// thumbs/ objects, suitable for a List call when deleting them. The raw
// text object at RawTextKey lies outside this prefix.
func DocumentPrefix(containerID, docID string) string {
	return path.Join(containerID, docID) + "/"
}
