package autotune

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	c, err := NewConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 4, c.NumWarps)
	assert.Equal(t, 2, c.NumStages)
	assert.Equal(t, 1, c.NumCTAs)
	assert.Nil(t, c.MaxNReg)
}

func TestNewConfigRejectsHintNameCollision(t *testing.T) {
	_, err := NewConfig(map[string]any{"num_warps": 8})
	assert.Error(t, err)
}

func TestNewConfigOptions(t *testing.T) {
	c, err := NewConfig(map[string]any{"BLOCK_SIZE": 64},
		WithNumWarps(8),
		WithNumStages(4),
		WithMaxNReg(128),
	)
	require.NoError(t, err)
	assert.Equal(t, 8, c.NumWarps)
	assert.Equal(t, 4, c.NumStages)
	require.NotNil(t, c.MaxNReg)
	assert.Equal(t, 128, *c.MaxNReg)
	assert.Equal(t, 64, c.Kwargs["BLOCK_SIZE"])
}

func TestConfigAllKwargsUnionsHintsAndKwargs(t *testing.T) {
	c, err := NewConfig(map[string]any{"BLOCK_SIZE": 64}, WithNumWarps(8))
	require.NoError(t, err)
	all := c.AllKwargs()
	assert.Equal(t, 64, all["BLOCK_SIZE"])
	assert.Equal(t, 8, all["num_warps"])
	assert.Equal(t, 2, all["num_stages"])
	_, hasMaxNReg := all["maxnreg"]
	assert.False(t, hasMaxNReg, "unset MaxNReg must not appear")
}

func TestConfigStringIsDeterministic(t *testing.T) {
	c, err := NewConfig(map[string]any{"z": 1, "a": 2})
	require.NoError(t, err)
	// Kwargs keys are sorted so repeated calls (and repeated test runs,
	// despite Go's randomized map iteration) produce identical output.
	assert.Equal(t, c.String(), c.String())
	assert.Contains(t, c.String(), "a: 2, z: 1")
}

func TestDefaultConfigFallback(t *testing.T) {
	c := defaultConfig()
	assert.Equal(t, 4, c.NumWarps)
	assert.Equal(t, 2, c.NumStages)
	assert.Equal(t, 1, c.NumCTAs)
	assert.Empty(t, c.Kwargs)
}
