package monitoring

import (
	"runtime"
	"sync"
	"time"
)

// CaseMetrics counts case events since start. It is an in-process view for
// the dashboard, not a persistent record.
type CaseMetrics struct {
	mu          sync.RWMutex
	predictions map[string]int
	resolutions map[string]int
	lastEvent   time.Time
	startTime   time.Time
}

type MetricsSnapshot struct {
	Uptime      string         `json:"uptime"`
	Predictions map[string]int `json:"predictions"`
	Resolutions map[string]int `json:"resolutions"`
	Pending     int            `json:"pending"`
	LastEventAt *time.Time     `json:"last_event_at,omitempty"`
	Goroutines  int            `json:"goroutines"`
	HeapAllocMB float64        `json:"heap_alloc_mb"`
}

func NewCaseMetrics() *CaseMetrics {
	return &CaseMetrics{
		predictions: make(map[string]int),
		resolutions: make(map[string]int),
		startTime:   time.Now(),
	}
}

// Publish records one event.
func (m *CaseMetrics) Publish(event CaseEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch event.Type {
	case EventPrediction:
		m.predictions[event.Prediction]++
	case EventFeedback:
		m.resolutions[event.Resolution]++
	}
	m.lastEvent = event.Timestamp
}

func (m *CaseMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := MetricsSnapshot{
		Uptime:      time.Since(m.startTime).Round(time.Second).String(),
		Predictions: make(map[string]int, len(m.predictions)),
		Resolutions: make(map[string]int, len(m.resolutions)),
		Goroutines:  runtime.NumGoroutine(),
	}
	total, resolved := 0, 0
	for k, v := range m.predictions {
		snapshot.Predictions[k] = v
		total += v
	}
	for k, v := range m.resolutions {
		snapshot.Resolutions[k] = v
		resolved += v
	}
	// every prediction and resolution counts, even for a repeated case id
	if pending := total - resolved; pending > 0 {
		snapshot.Pending = pending
	}
	if !m.lastEvent.IsZero() {
		last := m.lastEvent
		snapshot.LastEventAt = &last
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	snapshot.HeapAllocMB = float64(mem.HeapAlloc) / 1024 / 1024
	return snapshot
}

// Sinks fans one event out to several receivers, in order.
type Sinks []interface{ Publish(CaseEvent) }

func (s Sinks) Publish(event CaseEvent) {
	for _, sink := range s {
		sink.Publish(event)
	}
}
