package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := errors.New("connection reset")

	t.Run("unclassified uses the fallback", func(t *testing.T) {
		assert.Equal(t, KindRetryable, KindOf(base, KindRetryable))
		assert.False(t, HasKind(base, KindRetryable))
	})

	t.Run("wrapped classification is found", func(t *testing.T) {
		err := fmt.Errorf("dissolution: %w", Wrap(base, KindRetryable, "send change status"))
		assert.Equal(t, KindRetryable, KindOf(err, KindFatal))
		assert.True(t, IsRetryable(err))
		assert.ErrorIs(t, err, base)
	})

	t.Run("outermost classification wins", func(t *testing.T) {
		inner := New(KindRetryable, "no acknowledgement")
		err := Wrap(inner, KindRetriesExceeded, "bn hub")
		assert.Equal(t, KindRetriesExceeded, KindOf(err, KindFatal))
		assert.False(t, IsRetryable(err))
	})
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, KindFatal, "nothing"))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "fatal: unknown filing type", New(KindFatal, "unknown filing type").Error())
	assert.Equal(t, "data_error: tax id: missing", Wrap(errors.New("missing"), KindDataError, "tax id").Error())
	assert.Equal(t, "fatal: filing 7", Newf(KindFatal, "filing %d", 7).Error())
}
