package autotune

import "time"

// WallClockBenchmarker is a software-only Benchmarker standing in for the
// real device benchmarker, which Triton implements against the active GPU
// driver. No GPU binding library appears anywhere in the retrieval pack,
// so this module ships a host wall-clock default suitable for tests and
// CPU-only demos; a real deployment supplies its own Benchmarker the same
// way it supplies its own Kernel.
//
// It runs closure once untimed as a warmup, then `reps` timed times
// (default 10 when reps <= 0), and reports the median/p20/p80 of the timed
// latencies in milliseconds.
func WallClockBenchmarker(reps int) Benchmarker {
	if reps <= 0 {
		reps = 10
	}
	return func(closure func() error, quantiles [3]float64) (float64, float64, float64, error) {
		// one untimed warmup run, matching the spirit of do_bench's warmup phase
		if err := closure(); err != nil {
			return 0, 0, 0, err
		}

		samples := make([]float64, 0, reps)
		for i := 0; i < reps; i++ {
			start := time.Now()
			if err := closure(); err != nil {
				return 0, 0, 0, err
			}
			samples = append(samples, float64(time.Since(start))/float64(time.Millisecond))
		}
		return quantile(samples, quantiles[0]), quantile(samples, quantiles[1]), quantile(samples, quantiles[2]), nil
	}
}

func quantile(sorted []float64, q float64) float64 {
	s := append([]float64(nil), sorted...)
	insertionSort(s)
	if len(s) == 0 {
		return 0
	}
	idx := int(q * float64(len(s)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s) {
		idx = len(s) - 1
	}
	return s[idx]
}

func insertionSort(s []float64) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

// hostEvent is the wall-clock-backed Event used by hostDeviceInterface.
type hostEvent struct {
	t time.Time
}

func (e *hostEvent) Record() { e.t = time.Now() }

func (e *hostEvent) ElapsedTime(start Event) time.Duration {
	s, ok := start.(*hostEvent)
	if !ok {
		return 0
	}
	return e.t.Sub(s.t)
}

// hostDeviceInterface implements DeviceInterface on the host clock; device
// synchronization is a no-op because there is no async device queue to
// drain.
type hostDeviceInterface struct{}

// NewHostDeviceInterface returns a DeviceInterface backed by the host wall
// clock, used by the stepwise/epsilon/confidence policies' per-candidate
// timing when no real device driver is wired in.
func NewHostDeviceInterface() DeviceInterface { return hostDeviceInterface{} }

func (hostDeviceInterface) NewEvent(enableTiming bool) Event { return &hostEvent{} }

func (hostDeviceInterface) Synchronize() {}
