package response

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tunebox/internal/pkg/errcode"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
)

func TestClassify(t *testing.T) {
	code, msg := Classify(fmt.Errorf("%w: query is required", appErr.ErrInvalid))
	require.Equal(t, errcode.ErrInvalid, code)
	require.Equal(t, "invalid: query is required", msg)

	code, msg = Classify(fmt.Errorf("get track: %w: %w", appErr.ErrStorageUnavailable, errors.New("dial tcp: refused")))
	require.Equal(t, errcode.ErrStorageUnavailable, code)
	require.NotContains(t, msg, "dial")

	code, _ = Classify(errors.New("boom"))
	require.Equal(t, errcode.ErrInternal, code)

	code, _ = Classify(nil)
	require.Zero(t, code)
}
