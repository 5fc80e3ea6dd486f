package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics is a point-in-time snapshot of the collector
type Metrics struct {
	// HTTP request metrics
	TotalRequests       int64         `json:"total_requests"`
	SuccessfulRequests  int64         `json:"successful_requests"`
	FailedRequests      int64         `json:"failed_requests"`
	ActiveRequests      int64         `json:"active_requests"`
	AverageResponseTime time.Duration `json:"average_response_time"`
	MinResponseTime     time.Duration `json:"min_response_time"`
	MaxResponseTime     time.Duration `json:"max_response_time"`

	// Command invocation metrics
	Invocations           int64            `json:"invocations"`
	SuccessfulInvocations int64            `json:"successful_invocations"`
	FailedInvocations     int64            `json:"failed_invocations"`
	FailuresByCode        map[string]int64 `json:"failures_by_code"`

	// Upstream API metrics
	UpstreamCalls       int64         `json:"upstream_calls"`
	UpstreamFailures    int64         `json:"upstream_failures"`
	AverageUpstreamTime time.Duration `json:"average_upstream_time"`
}

// MetricsCollector provides thread-safe metrics collection
type MetricsCollector struct {
	totalRequests      int64
	successfulRequests int64
	failedRequests     int64
	activeRequests     int64

	invocations           int64
	successfulInvocations int64
	failedInvocations     int64

	upstreamCalls    int64
	upstreamFailures int64

	mu                sync.Mutex
	totalResponseTime time.Duration
	minResponseTime   time.Duration
	maxResponseTime   time.Duration
	totalUpstreamTime time.Duration
	failuresByCode    map[string]int64
	startTime         time.Time
}

const maxDuration = time.Duration(^uint64(0) >> 1)

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		minResponseTime: maxDuration,
		failuresByCode:  make(map[string]int64),
		startTime:       time.Now(),
	}
}

// RecordRequest records a new inbound HTTP request
func (mc *MetricsCollector) RecordRequest() {
	atomic.AddInt64(&mc.totalRequests, 1)
	atomic.AddInt64(&mc.activeRequests, 1)
}

// RecordRequestComplete records request completion
func (mc *MetricsCollector) RecordRequestComplete(duration time.Duration, success bool) {
	atomic.AddInt64(&mc.activeRequests, -1)

	if success {
		atomic.AddInt64(&mc.successfulRequests, 1)
	} else {
		atomic.AddInt64(&mc.failedRequests, 1)
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.totalResponseTime += duration
	if duration < mc.minResponseTime {
		mc.minResponseTime = duration
	}
	if duration > mc.maxResponseTime {
		mc.maxResponseTime = duration
	}
}

// RecordInvocation records the outcome of one command invocation.
// code classifies failures and is ignored on success.
func (mc *MetricsCollector) RecordInvocation(success bool, code string) {
	atomic.AddInt64(&mc.invocations, 1)

	if success {
		atomic.AddInt64(&mc.successfulInvocations, 1)
		return
	}

	atomic.AddInt64(&mc.failedInvocations, 1)
	if code == "" {
		return
	}

	mc.mu.Lock()
	mc.failuresByCode[code]++
	mc.mu.Unlock()
}

// RecordUpstreamCall records one call to the balance API
func (mc *MetricsCollector) RecordUpstreamCall(duration time.Duration, success bool) {
	atomic.AddInt64(&mc.upstreamCalls, 1)
	if !success {
		atomic.AddInt64(&mc.upstreamFailures, 1)
	}

	mc.mu.Lock()
	mc.totalUpstreamTime += duration
	mc.mu.Unlock()
}

// GetMetrics returns a copy of current metrics
func (mc *MetricsCollector) GetMetrics() *Metrics {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	m := &Metrics{
		TotalRequests:         atomic.LoadInt64(&mc.totalRequests),
		SuccessfulRequests:    atomic.LoadInt64(&mc.successfulRequests),
		FailedRequests:        atomic.LoadInt64(&mc.failedRequests),
		ActiveRequests:        atomic.LoadInt64(&mc.activeRequests),
		MinResponseTime:       mc.minResponseTime,
		MaxResponseTime:       mc.maxResponseTime,
		Invocations:           atomic.LoadInt64(&mc.invocations),
		SuccessfulInvocations: atomic.LoadInt64(&mc.successfulInvocations),
		FailedInvocations:     atomic.LoadInt64(&mc.failedInvocations),
		FailuresByCode:        make(map[string]int64, len(mc.failuresByCode)),
		UpstreamCalls:         atomic.LoadInt64(&mc.upstreamCalls),
		UpstreamFailures:      atomic.LoadInt64(&mc.upstreamFailures),
	}

	completed := m.SuccessfulRequests + m.FailedRequests
	if completed > 0 {
		m.AverageResponseTime = mc.totalResponseTime / time.Duration(completed)
	} else {
		m.MinResponseTime = 0
	}
	if m.UpstreamCalls > 0 {
		m.AverageUpstreamTime = mc.totalUpstreamTime / time.Duration(m.UpstreamCalls)
	}
	for code, n := range mc.failuresByCode {
		m.FailuresByCode[code] = n
	}

	return m
}

// GetUptime returns the uptime since metrics collection started
func (mc *MetricsCollector) GetUptime() time.Duration {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return time.Since(mc.startTime)
}

// Reset resets all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, counter := range []*int64{
		&mc.totalRequests, &mc.successfulRequests, &mc.failedRequests, &mc.activeRequests,
		&mc.invocations, &mc.successfulInvocations, &mc.failedInvocations,
		&mc.upstreamCalls, &mc.upstreamFailures,
	} {
		atomic.StoreInt64(counter, 0)
	}

	mc.totalResponseTime = 0
	mc.minResponseTime = maxDuration
	mc.maxResponseTime = 0
	mc.totalUpstreamTime = 0
	mc.failuresByCode = make(map[string]int64)
	mc.startTime = time.Now()
}

// GetSuccessRate returns the invocation success rate as a percentage
func (mc *MetricsCollector) GetSuccessRate() float64 {
	successful := atomic.LoadInt64(&mc.successfulInvocations)
	total := atomic.LoadInt64(&mc.invocations)

	if total == 0 {
		return 0.0
	}

	return float64(successful) / float64(total) * 100.0
}
