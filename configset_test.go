package autotune

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigSetAppliesDefaults(t *testing.T) {
	doc := `
configs:
  - kwargs:
      BLOCK_SIZE: 64
    num_warps: 8
  - kwargs:
      BLOCK_SIZE: 128
`
	configs, err := LoadConfigSet(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, configs, 2)

	assert.Equal(t, 8, configs[0].NumWarps)
	assert.Equal(t, 2, configs[0].NumStages, "unset num_stages falls back to the NewConfig default")
	assert.Equal(t, 64, configs[0].Kwargs["BLOCK_SIZE"])

	assert.Equal(t, 4, configs[1].NumWarps, "unset num_warps falls back to the NewConfig default")
	assert.Equal(t, 128, configs[1].Kwargs["BLOCK_SIZE"])
}

func TestLoadConfigSetMaxNReg(t *testing.T) {
	doc := `
configs:
  - maxnreg: 128
`
	configs, err := LoadConfigSet(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.NotNil(t, configs[0].MaxNReg)
	assert.Equal(t, 128, *configs[0].MaxNReg)
}

func TestLoadConfigSetEmptyDocument(t *testing.T) {
	configs, err := LoadConfigSet(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestLoadConfigSetRejectsHintCollision(t *testing.T) {
	doc := `
configs:
  - kwargs:
      num_warps: 8
`
	_, err := LoadConfigSet(strings.NewReader(doc))
	assert.Error(t, err)
}
