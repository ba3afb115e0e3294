package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/quizflow/types"
)

func TestPickPageText(t *testing.T) {
	t.Parallel()

	// #result 非空时优先
	assert.Equal(t, "42", pickPageText("full page text", "42"))
	// #result 为空或缺失时回退到 body
	assert.Equal(t, "full page text", pickPageText("full page text", ""))
	assert.Equal(t, "full page text", pickPageText("full page text", "   \n"))
}

func TestMapFetchError(t *testing.T) {
	t.Parallel()

	err := mapFetchError("https://x/q", context.DeadlineExceeded)
	assert.Equal(t, types.ErrFetchTimeout, err.Code)
	assert.True(t, err.Retryable)

	err = mapFetchError("https://x/q", assert.AnError)
	assert.Equal(t, types.ErrFetch, err.Code)
}
