// Package metrics 提供 RAG 服务的业务指标收集。
//
// 指标同时写入 Prometheus 注册表和内部原子计数器,
// 前者通过 /metrics 暴露, 后者用于 /stats 返回的快照。
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 查询结果分类。
const (
	OutcomeAnswered = "answered"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// 文档来源。
const (
	SourceAPI    = "api"
	SourceIngest = "ingest"
)

// RAGMetrics RAG 服务业务指标。
type RAGMetrics struct {
	queries            *prometheus.CounterVec
	retrievalDuration  prometheus.Histogram
	retrievalErrors    prometheus.Counter
	generationDuration prometheus.Histogram
	generationErrors   prometheus.Counter
	tokens             *prometheus.CounterVec
	documents          *prometheus.CounterVec
	insertErrors       prometheus.Counter

	queriesTotal      atomic.Uint64
	queriesNotFound   atomic.Uint64
	queriesErrors     atomic.Uint64
	retrievalTotal    atomic.Uint64
	retrievalNanos    atomic.Int64
	generationTotal   atomic.Uint64
	generationNanos   atomic.Int64
	generationErrs    atomic.Uint64
	tokensPrompt      atomic.Uint64
	tokensCompletion  atomic.Uint64
	documentsInserted atomic.Uint64
	insertErrs        atomic.Uint64

	startTime time.Time
}

// New 创建指标并注册到 reg, reg 为 nil 时只维护内部计数。
func New(namespace string, reg prometheus.Registerer) *RAGMetrics {
	m := &RAGMetrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "queries_total",
			Help:      "Total number of RAG queries by outcome.",
		}, []string{"outcome"}),
		retrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "retrieval_duration_seconds",
			Help:      "Nearest-neighbor retrieval latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		retrievalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "retrieval_errors_total",
			Help:      "Number of failed retrievals.",
		}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "generation_duration_seconds",
			Help:      "Generation backend latency.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		generationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "generation_errors_total",
			Help:      "Number of failed generation calls.",
		}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "generation_tokens_total",
			Help:      "Tokens reported by the generation backend.",
		}, []string{"type"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "documents_inserted_total",
			Help:      "Number of documents written to the store.",
		}, []string{"source"}),
		insertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "insert_errors_total",
			Help:      "Number of failed document inserts.",
		}),
		startTime: time.Now(),
	}

	if reg != nil {
		reg.MustRegister(
			m.queries,
			m.retrievalDuration,
			m.retrievalErrors,
			m.generationDuration,
			m.generationErrors,
			m.tokens,
			m.documents,
			m.insertErrors,
		)
	}
	return m
}

// RecordQuery 记录一次查询结果。
func (m *RAGMetrics) RecordQuery(outcome string) {
	m.queries.WithLabelValues(outcome).Inc()
	m.queriesTotal.Add(1)
	switch outcome {
	case OutcomeNotFound:
		m.queriesNotFound.Add(1)
	case OutcomeError:
		m.queriesErrors.Add(1)
	}
}

// RecordRetrieval 记录检索操作。
func (m *RAGMetrics) RecordRetrieval(duration time.Duration, err error) {
	m.retrievalTotal.Add(1)
	m.retrievalNanos.Add(int64(duration))
	m.retrievalDuration.Observe(duration.Seconds())
	if err != nil {
		m.retrievalErrors.Inc()
	}
}

// RecordGeneration 记录生成后端调用。
func (m *RAGMetrics) RecordGeneration(duration time.Duration, promptTokens, completionTokens int, err error) {
	m.generationTotal.Add(1)
	m.generationNanos.Add(int64(duration))
	m.generationDuration.Observe(duration.Seconds())
	if err != nil {
		m.generationErrors.Inc()
		m.generationErrs.Add(1)
		return
	}
	if promptTokens > 0 {
		m.tokens.WithLabelValues("prompt").Add(float64(promptTokens))
		m.tokensPrompt.Add(uint64(promptTokens))
	}
	if completionTokens > 0 {
		m.tokens.WithLabelValues("completion").Add(float64(completionTokens))
		m.tokensCompletion.Add(uint64(completionTokens))
	}
}

// RecordInsert 记录文档写入。
func (m *RAGMetrics) RecordInsert(source string, err error) {
	if err != nil {
		m.insertErrors.Inc()
		m.insertErrs.Add(1)
		return
	}
	m.documents.WithLabelValues(source).Inc()
	m.documentsInserted.Add(1)
}

func average(total int64, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return time.Duration(total / int64(n)).Seconds()
}

// Stats 返回当前统计信息（用于 API）。
func (m *RAGMetrics) Stats() map[string]interface{} {
	retrievalTotal := m.retrievalTotal.Load()
	generationTotal := m.generationTotal.Load()

	return map[string]interface{}{
		"queries": map[string]interface{}{
			"total":     m.queriesTotal.Load(),
			"not_found": m.queriesNotFound.Load(),
			"errors":    m.queriesErrors.Load(),
		},
		"retrieval": map[string]interface{}{
			"total":             retrievalTotal,
			"avg_duration_secs": average(m.retrievalNanos.Load(), retrievalTotal),
		},
		"generation": map[string]interface{}{
			"total":             generationTotal,
			"errors":            m.generationErrs.Load(),
			"avg_duration_secs": average(m.generationNanos.Load(), generationTotal),
			"tokens_prompt":     m.tokensPrompt.Load(),
			"tokens_completion": m.tokensCompletion.Load(),
		},
		"documents": map[string]interface{}{
			"inserted": m.documentsInserted.Load(),
			"errors":   m.insertErrs.Load(),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}
