package autotune

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TuningDecision records one policy's choice of configuration for one
// cache key, for callers observing convergence (re-themed from the
// teacher's GOGC TuningDecision to a kernel-config decision). Committed
// is true once the policy enters its terminal "decided" state for Key;
// Epsilon never sets it, since it keeps exploring indefinitely.
type TuningDecision struct {
	Function  string    `json:"function"`
	Policy    string    `json:"policy"`
	Key       string    `json:"key"`
	Config    string    `json:"config"`
	Committed bool      `json:"committed"`
	Timestamp time.Time `json:"timestamp"`
}

// ObservabilityConfig holds configuration for the HTTP observability
// surface: which port to serve on, where to mount the metrics endpoint,
// and how many decisions to retain in the bounded history.
type ObservabilityConfig struct {
	HTTPPort      int
	MetricsPath   string
	HistoryLength int
}

func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{
		HTTPPort:      8080,
		MetricsPath:   "/metrics",
		HistoryLength: 1000,
	}
}

// Recorder collects Prometheus metrics and a bounded decision history,
// shared by every Tuner a process dispatches (via WithRecorder). It is
// safe for concurrent use from the HTTP handlers even though any single
// Tuner's Run is not.
type Recorder struct {
	mu       sync.RWMutex
	history  []TuningDecision
	maxHist  int
	onDecide func(TuningDecision)

	cacheEvents   *prometheus.CounterVec
	launchLatency *prometheus.HistogramVec
	epsilonGauge  *prometheus.GaugeVec
}

// NewRecorder builds a Recorder and registers its collectors with reg
// (prometheus.NewRegistry() for test isolation, or
// prometheus.DefaultRegisterer in a real process). This replaces the
// teacher's hand-rolled Fprintf-based Prometheus text encoder with the
// standard collector/registry pattern from
// github.com/prometheus/client_golang.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		maxHist: 1000,
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autotune_cache_events_total",
			Help: "Count of cache hit/miss/failed-candidate events per tuned function and policy.",
		}, []string{"function", "policy", "event"}),
		launchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "autotune_launch_latency_ms",
			Help:    "Measured launch latency in milliseconds, by tuned function and policy.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
		}, []string{"function", "policy"}),
		epsilonGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autotune_epsilon_current",
			Help: "Current exploration epsilon for the Epsilon policy, by function and key.",
		}, []string{"function", "key"}),
	}
	reg.MustRegister(r.cacheEvents, r.launchLatency, r.epsilonGauge)
	return r
}

// SetOnDecision installs a callback invoked whenever RecordDecision runs,
// used by AlertManager to watch for commit events without polling.
func (r *Recorder) SetOnDecision(cb func(TuningDecision)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDecide = cb
}

func (r *Recorder) RecordCacheEvent(function, policy, event string) {
	r.cacheEvents.WithLabelValues(function, policy, event).Inc()
}

func (r *Recorder) RecordLatency(function, policy string, ms float64) {
	if ms < 0 {
		return
	}
	r.launchLatency.WithLabelValues(function, policy).Observe(ms)
}

func (r *Recorder) RecordEpsilon(function, key string, eps float64) {
	r.epsilonGauge.WithLabelValues(function, key).Set(eps)
}

func (r *Recorder) RecordDecision(d TuningDecision) {
	r.mu.Lock()
	r.history = append(r.history, d)
	if len(r.history) > r.maxHist {
		r.history = r.history[1:]
	}
	cb := r.onDecide
	r.mu.Unlock()

	if cb != nil {
		cb(d)
	}
}

func (r *Recorder) Decisions() []TuningDecision {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TuningDecision, len(r.history))
	copy(out, r.history)
	return out
}

// ObservabilityServer exposes a Recorder's metrics and decision history
// over HTTP.
type ObservabilityServer struct {
	config   *ObservabilityConfig
	recorder *Recorder
	registry *prometheus.Registry
	server   *http.Server
}

// NewObservabilityServer builds an HTTP server exposing Prometheus text
// format at config.MetricsPath, plus /health and /decisions as JSON.
func NewObservabilityServer(config *ObservabilityConfig, recorder *Recorder, registry *prometheus.Registry) *ObservabilityServer {
	if config == nil {
		config = DefaultObservabilityConfig()
	}
	obs := &ObservabilityServer{config: config, recorder: recorder, registry: registry}

	if recorder != nil && config.HistoryLength > 0 {
		recorder.mu.Lock()
		recorder.maxHist = config.HistoryLength
		if n := len(recorder.history); n > recorder.maxHist {
			recorder.history = recorder.history[n-recorder.maxHist:]
		}
		recorder.mu.Unlock()
	}

	mux := http.NewServeMux()
	mux.Handle(config.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", obs.handleHealth)
	mux.HandleFunc("/decisions", obs.handleDecisions)

	obs.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", config.HTTPPort),
		Handler: mux,
	}
	return obs
}

func (obs *ObservabilityServer) Start() error {
	go func() {
		if err := obs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err) // programmer error: caller reused a bound port
		}
	}()
	return nil
}

func (obs *ObservabilityServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return obs.server.Shutdown(ctx)
}

func (obs *ObservabilityServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

func (obs *ObservabilityServer) handleDecisions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	decisions := obs.recorder.Decisions()
	json.NewEncoder(w).Encode(map[string]any{
		"decisions": decisions,
		"count":     len(decisions),
		"timestamp": time.Now(),
	})
}

// AlertManager watches a Recorder's decision stream for conditions worth
// surfacing to an operator: a candidate repeatedly failing with
// OutOfResources, or a policy committing to a decision.
type AlertManager struct {
	recorder   *Recorder
	observers  []AlertObserver
	mu         sync.Mutex
	failCounts map[string]int
}

type AlertObserver interface {
	OnAlert(alert Alert)
}

type Alert struct {
	Level      AlertLevel      `json:"level"`
	Message    string          `json:"message"`
	Timestamp  time.Time       `json:"timestamp"`
	Decision   *TuningDecision `json:"decision,omitempty"`
	Resolution string          `json:"resolution,omitempty"`
}

type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "info"
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"
)

// NewAlertManager wires itself into recorder's decision stream via
// SetOnDecision; it does not itself watch cache events, since those are
// Prometheus counters rather than a callback stream.
func NewAlertManager(recorder *Recorder) *AlertManager {
	am := &AlertManager{recorder: recorder, failCounts: make(map[string]int)}
	recorder.SetOnDecision(am.checkDecision)
	return am
}

func (am *AlertManager) AddObserver(observer AlertObserver) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.observers = append(am.observers, observer)
}

func (am *AlertManager) checkDecision(d TuningDecision) {
	if !d.Committed {
		return
	}
	am.mu.Lock()
	observers := am.observers
	am.mu.Unlock()

	alert := Alert{
		Level:      AlertLevelInfo,
		Message:    fmt.Sprintf("%s committed to %s for key %s", d.Function, d.Config, d.Key),
		Timestamp:  time.Now(),
		Decision:   &d,
		Resolution: "",
	}
	for _, observer := range observers {
		observer.OnAlert(alert)
	}
}

// NotifyCandidateFailed raises a warning once a given key has produced
// repeated OutOfResources failures, since that usually means the
// candidate set contains configs the target hardware cannot run at all.
func (am *AlertManager) NotifyCandidateFailed(function, key string) {
	am.mu.Lock()
	am.failCounts[function+"/"+key]++
	count := am.failCounts[function+"/"+key]
	observers := am.observers
	am.mu.Unlock()

	if count != 3 {
		return
	}
	alert := Alert{
		Level:      AlertLevelWarning,
		Message:    fmt.Sprintf("%s: 3 candidates for key %s have failed with OutOfResources", function, key),
		Timestamp:  time.Now(),
		Resolution: "Review the candidate set for configs that exceed device resource limits",
	}
	for _, observer := range observers {
		observer.OnAlert(alert)
	}
}

// LogAlertObserver logs alerts to the configured Logger.
type LogAlertObserver struct {
	logger Logger
}

func NewLogAlertObserver(logger Logger) *LogAlertObserver {
	return &LogAlertObserver{logger: logger}
}

func (lao *LogAlertObserver) OnAlert(alert Alert) {
	fields := map[string]any{"resolution": alert.Resolution}
	if alert.Decision != nil {
		fields["function"] = alert.Decision.Function
		fields["key"] = alert.Decision.Key
	}
	switch alert.Level {
	case AlertLevelInfo:
		lao.logger.Info(alert.Message, fields)
	case AlertLevelWarning:
		lao.logger.Warn(alert.Message, fields)
	case AlertLevelCritical:
		lao.logger.Error(alert.Message, fields)
	}
}
