package autotune

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSoftFailureMatchesBothKinds(t *testing.T) {
	assert.True(t, isSoftFailure(&OutOfResourcesError{}))
	assert.True(t, isSoftFailure(&CompileTimeAssertionFailureError{}))
	assert.False(t, isSoftFailure(errors.New("plain error")))
}

func TestIsOutOfResourcesOnlyMatchesThatKind(t *testing.T) {
	assert.True(t, isOutOfResources(&OutOfResourcesError{}))
	assert.False(t, isOutOfResources(&CompileTimeAssertionFailureError{}))
}

func TestNewUnknownPolicyErrorWrapsSentinel(t *testing.T) {
	err := newUnknownPolicyError("bogus")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
	assert.Contains(t, err.Error(), "bogus")
}

func TestOutOfResourcesErrorUnwrap(t *testing.T) {
	cause := errors.New("shared memory exceeded")
	err := &OutOfResourcesError{Cause: cause}
	assert.ErrorIs(t, err, cause)
}
