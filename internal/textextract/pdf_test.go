package textextract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractPDF_InvalidDataReturnsError(t *testing.T) {
	t.Parallel()
	_, err := ExtractPDF([]byte("not a pdf"), 0)
	require.Error(t, err)
}
