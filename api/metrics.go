package api

import (
	"sort"
	"sync"
	"time"
)

// RequestTrace tracks timing for a single request
type RequestTrace struct {
	RequestID string        `json:"requestId"`
	Method    string        `json:"method"`
	Route     string        `json:"route"`
	Status    int           `json:"status"`
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`
}

// RouteMetrics aggregates metrics for a specific route
type RouteMetrics struct {
	Method      string        `json:"method"`
	Route       string        `json:"route"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"totalTime"`
	AvgTime     time.Duration `json:"avgTime"`
	MinTime     time.Duration `json:"minTime"`
	MaxTime     time.Duration `json:"maxTime"`
	LastRequest time.Time     `json:"lastRequest"`
}

// MetricsSummary is the payload of the admin metrics endpoint
type MetricsSummary struct {
	Since         time.Time       `json:"since"`
	TotalRequests int64           `json:"totalRequests"`
	TotalErrors   int64           `json:"totalErrors"`
	ErrorRate     float64         `json:"errorRate"`
	Routes        []*RouteMetrics `json:"routes"`
}

// MetricsCollector collects and aggregates request metrics.
// RecordTrace never blocks: traces are dropped when the buffer is full.
type MetricsCollector struct {
	mu            sync.RWMutex
	routeMetrics  map[string]*RouteMetrics
	since         time.Time
	totalRequests int64
	totalErrors   int64
	traceChan     chan RequestTrace
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewMetricsCollector starts a collector processing up to buffer queued traces
func NewMetricsCollector(buffer int) *MetricsCollector {
	mc := &MetricsCollector{
		routeMetrics: make(map[string]*RouteMetrics),
		since:        time.Now(),
		traceChan:    make(chan RequestTrace, buffer),
		stopChan:     make(chan struct{}),
	}
	go mc.processTraces()
	return mc
}

// RecordTrace queues a trace for aggregation
func (mc *MetricsCollector) RecordTrace(trace RequestTrace) {
	select {
	case mc.traceChan <- trace:
	default:
	}
}

// Stop ends the background aggregation
func (mc *MetricsCollector) Stop() {
	mc.stopOnce.Do(func() { close(mc.stopChan) })
}

func (mc *MetricsCollector) processTraces() {
	for {
		select {
		case trace := <-mc.traceChan:
			mc.processTrace(trace)
		case <-mc.stopChan:
			return
		}
	}
}

func (mc *MetricsCollector) processTrace(trace RequestTrace) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := trace.Method + " " + trace.Route
	metrics, exists := mc.routeMetrics[key]
	if !exists {
		metrics = &RouteMetrics{
			Method:  trace.Method,
			Route:   trace.Route,
			MinTime: trace.Duration,
		}
		mc.routeMetrics[key] = metrics
	}

	metrics.Count++
	metrics.TotalTime += trace.Duration
	metrics.AvgTime = metrics.TotalTime / time.Duration(metrics.Count)
	metrics.LastRequest = trace.StartTime
	if trace.Duration < metrics.MinTime {
		metrics.MinTime = trace.Duration
	}
	if trace.Duration > metrics.MaxTime {
		metrics.MaxTime = trace.Duration
	}

	mc.totalRequests++
	if trace.Status >= 400 {
		metrics.ErrorCount++
		mc.totalErrors++
	}
}

// Summary returns totals and per-route metrics, busiest routes first
func (mc *MetricsCollector) Summary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	summary := MetricsSummary{
		Since:         mc.since,
		TotalRequests: mc.totalRequests,
		TotalErrors:   mc.totalErrors,
		Routes:        make([]*RouteMetrics, 0, len(mc.routeMetrics)),
	}
	if mc.totalRequests > 0 {
		summary.ErrorRate = float64(mc.totalErrors) / float64(mc.totalRequests)
	}
	for _, v := range mc.routeMetrics {
		metrics := *v
		summary.Routes = append(summary.Routes, &metrics)
	}
	sort.Slice(summary.Routes, func(i, j int) bool {
		if summary.Routes[i].Count != summary.Routes[j].Count {
			return summary.Routes[i].Count > summary.Routes[j].Count
		}
		return summary.Routes[i].Method+summary.Routes[i].Route < summary.Routes[j].Method+summary.Routes[j].Route
	})
	return summary
}
