package autotune

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeTensor struct {
	dtype string
}

func (f fakeTensor) Dtype() string { return f.dtype }

// TestKeyDtypeDifferentiation checks that two calls with identical scalar
// args but differing tensor dtypes produce distinct cache keys.
func TestKeyDtypeDifferentiation(t *testing.T) {
	argNames := []string{"x", "n"}
	bound16 := map[string]any{"x": fakeTensor{dtype: "float16"}, "n": 1024}
	bound32 := map[string]any{"x": fakeTensor{dtype: "float32"}, "n": 1024}

	key16 := cacheKey(extractKey(argNames, []string{"n"}, bound16))
	key32 := cacheKey(extractKey(argNames, []string{"n"}, bound32))

	assert.NotEqual(t, key16, key32)
}

func TestExtractKeyOrdersDtypeTagsByArgNames(t *testing.T) {
	// dtype tags are appended in arg_names order, not Go map iteration
	// order, since Go map iteration is non-deterministic across runs.
	argNames := []string{"a", "b"}
	bound := map[string]any{
		"a": fakeTensor{dtype: "int32"},
		"b": fakeTensor{dtype: "float64"},
	}
	key := extractKey(argNames, nil, bound)
	assert.Equal(t, []any{"int32", "float64"}, key)
}

func TestExtractKeyOnlyUsesBoundNames(t *testing.T) {
	argNames := []string{"x"}
	bound := map[string]any{"x": 5, "unrelated": 9}
	key := extractKey(argNames, []string{"unrelated"}, bound)
	assert.Empty(t, key, "keys not in arg_names/bound should be ignored")
}

func TestCacheKeyStableForIdenticalInputs(t *testing.T) {
	assert.Equal(t, cacheKey([]any{1, "a"}), cacheKey([]any{1, "a"}))
	assert.NotEqual(t, cacheKey([]any{1, "a"}), cacheKey([]any{1, "b"}))
}
