package retrieve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRequest_TopKBoundaries(t *testing.T) {
	t.Parallel()

	base := Request{Query: "hello", Mode: ModeHybrid}

	zero := base
	zero.TopK = 0
	require.Error(t, ValidateRequest(zero))

	one := base
	one.TopK = 1
	require.NoError(t, ValidateRequest(one))

	fifty := base
	fifty.TopK = 50
	require.NoError(t, ValidateRequest(fifty))

	fiftyOne := base
	fiftyOne.TopK = 51
	require.Error(t, ValidateRequest(fiftyOne))
}

func TestValidateRequest_RejectsEmptyQueryAndImage(t *testing.T) {
	t.Parallel()

	req := Request{TopK: 10, Mode: ModeHybrid}
	err := ValidateRequest(req)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, ErrCodeInvalidRequest, verr.Code)
}

func TestValidateRequest_AllowsImageOnlyRequest(t *testing.T) {
	t.Parallel()

	req := Request{TopK: 10, Mode: ModeCrossmodal, ImageBase64: "base64data"}
	require.NoError(t, ValidateRequest(req))
}

func TestValidateRequest_RejectsGraphModeWithImage(t *testing.T) {
	t.Parallel()

	req := Request{TopK: 10, Mode: ModeGraph, Query: "who owns phoenix", ImageBase64: "base64data"}
	require.Error(t, ValidateRequest(req))
}

func TestValidateRequest_AllowsGraphModeWithoutImage(t *testing.T) {
	t.Parallel()

	req := Request{TopK: 10, Mode: ModeGraph, Query: "who owns phoenix"}
	require.NoError(t, ValidateRequest(req))
}
