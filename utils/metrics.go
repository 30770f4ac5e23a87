package utils

import (
	"sync"
	"time"
)

// Metrics содержит метрики приложения
type Metrics struct {
	mu sync.RWMutex

	// Метрики запросов
	TotalRequests   int64
	FailedRequests  int64
	RequestLatency  time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time

	// Метрики обязательств
	ObligationsCreated   int64
	StatusRecomputations int64
	StatusTransitions    map[string]int64
	ReceiptsRecorded     int64
	ReceiptsDeleted      int64
	LastSweepTime        time.Time

	// Метрики ошибок
	ErrorCount    int64
	LastErrorTime time.Time
	ErrorTypes    map[string]int64
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// NewMetrics создает пустой набор метрик
func NewMetrics() *Metrics {
	return &Metrics{
		StatusTransitions: make(map[string]int64),
		ErrorTypes:        make(map[string]int64),
	}
}

// GetMetrics возвращает экземпляр метрик
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics()
	})
	return metrics
}

// RecordRequest записывает метрики запроса
func (m *Metrics) RecordRequest(duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	m.RequestLatency += duration
	m.AverageLatency = m.RequestLatency / time.Duration(m.TotalRequests)
	m.LastRequestTime = time.Now()

	if failed {
		m.FailedRequests++
	}
}

// RecordObligationsCreated учитывает созданные генератором обязательства
func (m *Metrics) RecordObligationsCreated(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ObligationsCreated += int64(n)
}

// RecordStatusRecompute учитывает пересчет статуса; to пуст, если статус не изменился
func (m *Metrics) RecordStatusRecompute(to string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StatusRecomputations++
	if to != "" {
		m.StatusTransitions[to]++
	}
}

// RecordReceipt учитывает создание или удаление поступления
func (m *Metrics) RecordReceipt(deleted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if deleted {
		m.ReceiptsDeleted++
	} else {
		m.ReceiptsRecorded++
	}
}

// RecordSweep отмечает время последнего прохода планировщика
func (m *Metrics) RecordSweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastSweepTime = time.Now()
}

// RecordError записывает метрики ошибки
func (m *Metrics) RecordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ErrorCount++
	m.LastErrorTime = time.Now()

	errorType := "unknown"
	if err != nil {
		errorType = err.Error()
	}

	m.ErrorTypes[errorType]++
}

// GetMetricsSnapshot возвращает снимок текущих метрик
func (m *Metrics) GetMetricsSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	transitions := make(map[string]int64, len(m.StatusTransitions))
	for k, v := range m.StatusTransitions {
		transitions[k] = v
	}
	errorTypes := make(map[string]int64, len(m.ErrorTypes))
	for k, v := range m.ErrorTypes {
		errorTypes[k] = v
	}

	return map[string]interface{}{
		"total_requests":        m.TotalRequests,
		"failed_requests":       m.FailedRequests,
		"average_latency":       m.AverageLatency.String(),
		"obligations_created":   m.ObligationsCreated,
		"status_recomputations": m.StatusRecomputations,
		"status_transitions":    transitions,
		"receipts_recorded":     m.ReceiptsRecorded,
		"receipts_deleted":      m.ReceiptsDeleted,
		"last_sweep_time":       m.LastSweepTime,
		"error_count":           m.ErrorCount,
		"last_error_time":       m.LastErrorTime,
		"error_types":           errorTypes,
	}
}

// ResetMetrics сбрасывает все метрики
func (m *Metrics) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests = 0
	m.FailedRequests = 0
	m.RequestLatency = 0
	m.AverageLatency = 0
	m.ObligationsCreated = 0
	m.StatusRecomputations = 0
	m.StatusTransitions = make(map[string]int64)
	m.ReceiptsRecorded = 0
	m.ReceiptsDeleted = 0
	m.ErrorCount = 0
	m.ErrorTypes = make(map[string]int64)
}
