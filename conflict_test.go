package autotune

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConflictingMetaParametersDetected checks that a call kwarg which
// collides with a name a candidate Config already supplies via its own
// Kwargs raises ConflictingMetaParametersError when that candidate is
// benchmarked.
func TestConflictingMetaParametersDetected(t *testing.T) {
	kernel := newFakeKernel()
	conflicting, err := NewConfig(map[string]any{"BLOCK": 128})
	require.NoError(t, err)
	other, err := NewConfig(map[string]any{"BLOCK": 64})
	require.NoError(t, err)

	// More than one candidate routes through the benchmarking pass, which
	// is where the conflict check lives; the single-candidate fast path
	// never explicitly checks.
	tuner, err := Dispatch(PolicyDefault, kernel, []*Config{conflicting, other}, nil)
	require.NoError(t, err)

	err = tuner.Run(context.Background(), []any{1}, map[string]any{"BLOCK": 256})
	require.Error(t, err)
	var conflict *ConflictingMetaParametersError
	assert.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Names, "BLOCK")
}
