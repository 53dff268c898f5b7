package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registerOnce           sync.Once
	entrySaves             *prometheus.CounterVec
	bulkItems              *prometheus.CounterVec
	translationLookups     *prometheus.CounterVec
	listFetchDuration      *prometheus.HistogramVec
	defaultDurationBuckets = prometheus.DefBuckets
)

const (
	namespaceMetrics = "cms"
)

// MustRegister 初始化 Prometheus 指标并注册 Go 运行时采样器，需在应用启动阶段调用一次。
func MustRegister() {
	registerOnce.Do(func() {
		entrySaves = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "entries",
					Name:      "saves_total",
					Help:      "内容保存次数，按目标状态与结果统计。",
				},
				[]string{"status", "result"},
			),
		)
		bulkItems = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "entries",
					Name:      "bulk_items_total",
					Help:      "批量操作处理的条目数，按操作与结果统计。",
				},
				[]string{"action", "result"},
			),
		)
		translationLookups = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "translations",
					Name:      "lookups_total",
					Help:      "按语言查询译文的次数，按结果分类（found/missing/error/self）。",
				},
				[]string{"result"},
			),
		)
		listFetchDuration = registerHistogramVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespaceMetrics,
					Subsystem: "content_list",
					Name:      "fetch_duration_seconds",
					Help:      "内容列表检索耗时。",
					Buckets:   defaultDurationBuckets,
				},
				[]string{"result"},
			),
		)

		registerRuntimeCollectors()
	})
}

// RecordEntrySave 记录一次内容保存。
func RecordEntrySave(status, result string) {
	if entrySaves == nil {
		return
	}
	entrySaves.WithLabelValues(normalizeLabel(status, "draft"), normalizeLabel(result, "unknown")).Inc()
}

// RecordBulkItem 记录批量操作中单个条目的处理结果。
func RecordBulkItem(action, result string) {
	if bulkItems == nil {
		return
	}
	bulkItems.WithLabelValues(normalizeLabel(action, "unknown"), normalizeLabel(result, "unknown")).Inc()
}

// RecordTranslationLookup 记录一次按语言的译文查询。
func RecordTranslationLookup(result string) {
	if translationLookups == nil {
		return
	}
	translationLookups.WithLabelValues(normalizeLabel(result, "unknown")).Inc()
}

// ObserveListFetch 记录内容列表检索耗时。
func ObserveListFetch(duration time.Duration, err error) {
	if listFetchDuration == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	listFetchDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func normalizeLabel(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func registerCounterVec(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		if existing := alreadyRegisteredCounterVec(err); existing != nil {
			return existing
		}
		panic(err)
	}
	return vec
}

func registerHistogramVec(vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(vec); err != nil {
		if existing := alreadyRegisteredHistogramVec(err); existing != nil {
			return existing
		}
		panic(err)
	}
	return vec
}

func registerRuntimeCollectors() {
	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
}

func alreadyRegisteredCounterVec(err error) *prometheus.CounterVec {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing
		}
	}
	return nil
}

func alreadyRegisteredHistogramVec(err error) *prometheus.HistogramVec {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
			return existing
		}
	}
	return nil
}

func isAlreadyRegistered(err error) bool {
	_, ok := err.(prometheus.AlreadyRegisteredError)
	return ok
}
