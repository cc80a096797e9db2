package corerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	err := NotFound("container not found")
	require.Equal(t, KindNotFound, KindOf(err))
	require.True(t, Is(err, KindNotFound))

	wrapped := fmtWrap(err)
	require.Equal(t, KindNotFound, KindOf(wrapped))

	plain := errors.New("boom")
	require.Equal(t, KindInternal, KindOf(plain))
}

func TestUnavailableUnwraps(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Unavailable("qdrant unreachable", cause)
	require.True(t, errors.Is(err, cause))
	require.Equal(t, KindUnavailable, KindOf(err))
}

func fmtWrap(err error) error {
	return Wrap(KindOf(err), "outer", err)
}
