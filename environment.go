package autotune

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// BenchEnvironment describes the container resource limits the benchmark
// process is running under. It exists because cgroup CPU throttling skews
// wall-clock benchmark medians: a config that "wins" the exhaustive
// benchmark-all pass might only look fastest because a competing candidate
// happened to run during a throttle window. Detection reads cgroup v1/v2
// CPU and memory controllers directly.
type BenchEnvironment struct {
	MemoryLimit uint64  // bytes; 0 if undetected
	CPULimit    float64 // cores; 0 if undetected
	IsContainer bool
}

// DetectBenchEnvironment probes for container resource limits so callers
// (notably Exhaustive's dispatch setup) can warn when CPU quota is
// fractional, since that is the single biggest source of benchmark noise
// in a shared CI runner or oversubscribed pod.
func DetectBenchEnvironment() (*BenchEnvironment, error) {
	env := &BenchEnvironment{}

	if isRunningInContainer() {
		env.IsContainer = true
		if mem, err := detectMemoryLimit(); err == nil {
			env.MemoryLimit = mem
		}
		if cpu, err := detectCPULimit(); err == nil {
			env.CPULimit = cpu
		}
	}

	return env, nil
}

// Noisy reports whether this environment is likely to produce noisy
// benchmark timings: containerized with a fractional CPU quota.
func (e *BenchEnvironment) Noisy() bool {
	return e.IsContainer && e.CPULimit > 0 && e.CPULimit < 1.0
}

func isRunningInContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		content := string(data)
		if strings.Contains(content, "docker") ||
			strings.Contains(content, "kubepods") ||
			strings.Contains(content, "containerd") {
			return true
		}
	}
	if os.Getpid() == 1 {
		return true
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}
	return false
}

func detectMemoryLimit() (uint64, error) {
	if limit, err := readCgroupV2MemoryLimit(); err == nil {
		return limit, nil
	}
	if limit, err := readCgroupV1MemoryLimit(); err == nil {
		return limit, nil
	}
	return 0, fmt.Errorf("unable to detect memory limit")
}

func readCgroupV2MemoryLimit() (uint64, error) {
	paths := []string{
		"/sys/fs/cgroup/memory.max",
		"/sys/fs/cgroup/memory/memory.limit_in_bytes",
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		content := strings.TrimSpace(string(data))
		if content == "max" {
			continue
		}
		limit, err := strconv.ParseUint(content, 10, 64)
		if err == nil && limit > 0 && limit < (1<<63) {
			return limit, nil
		}
	}
	return 0, fmt.Errorf("cgroup v2 memory limit not found")
}

func readCgroupV1MemoryLimit() (uint64, error) {
	cgroupPath, err := findCgroupPath("memory")
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(filepath.Join(cgroupPath, "memory.limit_in_bytes"))
	if err != nil {
		return 0, err
	}
	limit, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, err
	}
	if limit >= (1<<63) || limit == 0 {
		return 0, fmt.Errorf("no memory limit set")
	}
	return limit, nil
}

func detectCPULimit() (float64, error) {
	if limit, err := readCgroupV2CPULimit(); err == nil {
		return limit, nil
	}
	if limit, err := readCgroupV1CPULimit(); err == nil {
		return limit, nil
	}
	return 0, fmt.Errorf("unable to detect CPU limit")
}

func readCgroupV2CPULimit() (float64, error) {
	data, err := os.ReadFile("/sys/fs/cgroup/cpu.max")
	if err != nil {
		return 0, err
	}
	content := strings.TrimSpace(string(data))
	if content == "max" {
		return 0, fmt.Errorf("no CPU limit set")
	}
	fields := strings.Fields(content)
	if len(fields) < 2 {
		return 0, fmt.Errorf("cpu.max malformed")
	}
	quota, err1 := strconv.ParseFloat(fields[0], 64)
	period, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil || period <= 0 {
		return 0, fmt.Errorf("cgroup v2 CPU limit not found")
	}
	return quota / period, nil
}

func readCgroupV1CPULimit() (float64, error) {
	cgroupPath, err := findCgroupPath("cpu")
	if err != nil {
		return 0, err
	}
	quotaData, err := os.ReadFile(filepath.Join(cgroupPath, "cpu.cfs_quota_us"))
	if err != nil {
		return 0, err
	}
	periodData, err := os.ReadFile(filepath.Join(cgroupPath, "cpu.cfs_period_us"))
	if err != nil {
		return 0, err
	}
	quota, err1 := strconv.ParseFloat(strings.TrimSpace(string(quotaData)), 64)
	period, err2 := strconv.ParseFloat(strings.TrimSpace(string(periodData)), 64)
	if err1 != nil || err2 != nil || quota <= 0 || period <= 0 {
		return 0, fmt.Errorf("no CPU limit set")
	}
	return quota / period, nil
}

func findCgroupPath(subsystem string) (string, error) {
	mountData, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return "", err
	}

	var cgroupRoot string
	scanner := bufio.NewScanner(strings.NewReader(string(mountData)))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 3 && fields[2] == "cgroup" {
			cgroupRoot = fields[1]
			break
		}
	}
	if cgroupRoot == "" {
		return "", fmt.Errorf("cgroup mount point not found")
	}

	cgroupData, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return "", err
	}
	scanner = bufio.NewScanner(strings.NewReader(string(cgroupData)))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) < 3 {
			continue
		}
		for _, sys := range strings.Split(fields[1], ",") {
			if sys == subsystem {
				return filepath.Join(cgroupRoot, subsystem, fields[2]), nil
			}
		}
	}
	return "", fmt.Errorf("cgroup path for %s not found", subsystem)
}
