package autotune

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBenchEnvironmentNoisyRequiresContainerAndFractionalCPU(t *testing.T) {
	cases := []struct {
		name  string
		env   BenchEnvironment
		noisy bool
	}{
		{"not a container", BenchEnvironment{IsContainer: false, CPULimit: 0.5}, false},
		{"container, no cpu limit", BenchEnvironment{IsContainer: true, CPULimit: 0}, false},
		{"container, whole-core limit", BenchEnvironment{IsContainer: true, CPULimit: 2.0}, false},
		{"container, fractional limit", BenchEnvironment{IsContainer: true, CPULimit: 0.5}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.noisy, c.env.Noisy())
		})
	}
}

func TestDetectBenchEnvironmentNeverErrors(t *testing.T) {
	// DetectBenchEnvironment always returns a usable zero-value result even
	// off a real container: absence of cgroup files is not itself an error.
	env, err := DetectBenchEnvironment()
	assert.NoError(t, err)
	assert.NotNil(t, env)
}
