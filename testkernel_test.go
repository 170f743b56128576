package autotune

import (
	"context"
	"sync"
	"time"
)

// fakeKernel is a minimal Kernel used across the policy convergence tests:
// each candidate Config carries a distinguishing "id" kwarg, and
// fakeKernel.Run records which id last launched so a fakeDevice or fake
// Benchmarker can look up a pre-programmed timing for it.
type fakeKernel struct {
	mu      sync.Mutex
	lastID  string
	failIDs map[string]bool
	calls   int
	warmups int
}

func newFakeKernel() *fakeKernel { return &fakeKernel{failIDs: map[string]bool{}} }

func (k *fakeKernel) ArgNames() []string { return []string{"x"} }
func (k *fakeKernel) Name() string       { return "fake" }

func (k *fakeKernel) Warmup(ctx context.Context, args []any, kwargs map[string]any) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.warmups++
	return nil
}

func (k *fakeKernel) Run(ctx context.Context, args []any, kwargs map[string]any) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls++
	id, _ := kwargs["id"].(string)
	k.lastID = id
	if k.failIDs[id] {
		return &OutOfResourcesError{}
	}
	return nil
}

func configWithID(id string, opts ...ConfigOption) *Config {
	c, err := NewConfig(map[string]any{"id": id}, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// fakeBenchmarker returns the pre-programmed median/quantiles for whichever
// candidate kernel last ran, used by Exhaustive's bench() path.
func fakeBenchmarker(kernel *fakeKernel, medians map[string]float64) Benchmarker {
	return func(closure func() error, quantiles [3]float64) (float64, float64, float64, error) {
		if err := closure(); err != nil {
			return 0, 0, 0, err
		}
		m := medians[kernel.lastID]
		return m, m * 0.8, m * 1.2, nil
	}
}

// fakeDevice drives measureWithDevicePreHookOnly (used by
// Stepwise/Epsilon/Confidence) with pre-programmed per-id millisecond
// timing sequences instead of real wall-clock measurement: each id's
// list is consumed in order, then the last value repeats.
type fakeDevice struct {
	mu      sync.Mutex
	kernel  *fakeKernel
	timings map[string][]float64
	next    map[string]int
}

func newFakeDevice(kernel *fakeKernel, timings map[string][]float64) *fakeDevice {
	return &fakeDevice{kernel: kernel, timings: timings, next: map[string]int{}}
}

func (d *fakeDevice) NewEvent(enableTiming bool) Event { return &fakeEvent{dev: d} }
func (d *fakeDevice) Synchronize()                     {}

func (d *fakeDevice) nextTiming(id string) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	seq := d.timings[id]
	if len(seq) == 0 {
		return 0
	}
	i := d.next[id]
	if i >= len(seq) {
		i = len(seq) - 1
	} else {
		d.next[id] = i + 1
	}
	return seq[i]
}

type fakeEvent struct {
	dev *fakeDevice
	id  string
}

func (e *fakeEvent) Record() { e.id = e.dev.kernel.lastID }

func (e *fakeEvent) ElapsedTime(start Event) time.Duration {
	ms := e.dev.nextTiming(e.id)
	return time.Duration(ms * float64(time.Millisecond))
}
