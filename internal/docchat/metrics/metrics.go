// Package metrics collects service counters for the chat pipeline.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds the service counters. All counters are updated atomically
// and exported in Prometheus text exposition format.
type Metrics struct {
	chatTotal       uint64
	chatCacheHits   uint64
	chatCacheMisses uint64
	chatErrors      uint64

	retrievalTotal  uint64
	retrievalEmpty  uint64
	retrievalErrors uint64

	llmCallsTotal       uint64
	llmCallsErrors      uint64
	llmTokensPrompt     uint64
	llmTokensCompletion uint64

	reloadsTotal  uint64
	reloadsErrors uint64

	retrievalDuration float64
	llmDuration       float64
	durationMu        sync.Mutex

	startTime time.Time
}

var (
	global *Metrics
	once   sync.Once
)

// Get returns the process-wide metrics instance.
func Get() *Metrics {
	once.Do(func() {
		global = &Metrics{startTime: time.Now()}
	})
	return global
}

// RecordChat records one chat request.
func (m *Metrics) RecordChat(cacheHit bool, err error) {
	atomic.AddUint64(&m.chatTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.chatErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.chatCacheHits, 1)
	} else {
		atomic.AddUint64(&m.chatCacheMisses, 1)
	}
}

// RecordRetrieval records one retrieval pass.
func (m *Metrics) RecordRetrieval(duration time.Duration, resultCount int, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}
	if resultCount == 0 {
		atomic.AddUint64(&m.retrievalEmpty, 1)
	}

	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMCall records one chat completion call.
func (m *Metrics) RecordLLMCall(duration time.Duration, promptTokens, completionTokens int, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.llmDuration += duration.Seconds()
	m.durationMu.Unlock()

	if promptTokens > 0 {
		atomic.AddUint64(&m.llmTokensPrompt, uint64(promptTokens))
	}
	if completionTokens > 0 {
		atomic.AddUint64(&m.llmTokensCompletion, uint64(completionTokens))
	}
}

// RecordReload records one index rebuild.
func (m *Metrics) RecordReload(err error) {
	atomic.AddUint64(&m.reloadsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.reloadsErrors, 1)
	}
}

// counter appends one counter metric in exposition format.
func counter(sb *strings.Builder, prefix, name, help string, value uint64) {
	fmt.Fprintf(sb, "# HELP %s_%s %s\n", prefix, name, help)
	fmt.Fprintf(sb, "# TYPE %s_%s counter\n", prefix, name)
	fmt.Fprintf(sb, "%s_%s %d\n\n", prefix, name, value)
}

// gauge appends one gauge metric in exposition format.
func gauge(sb *strings.Builder, prefix, name, help string, value float64) {
	fmt.Fprintf(sb, "# HELP %s_%s %s\n", prefix, name, help)
	fmt.Fprintf(sb, "# TYPE %s_%s gauge\n", prefix, name)
	fmt.Fprintf(sb, "%s_%s %.6f\n\n", prefix, name, value)
}

// Export renders the counters in Prometheus text exposition format.
func (m *Metrics) Export(namespace, subsystem string) string {
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmDuration
	m.durationMu.Unlock()

	var sb strings.Builder

	counter(&sb, prefix, "chat_requests_total", "Total number of chat requests.", atomic.LoadUint64(&m.chatTotal))
	counter(&sb, prefix, "chat_cache_hits_total", "Number of chat answers served from cache.", atomic.LoadUint64(&m.chatCacheHits))
	counter(&sb, prefix, "chat_cache_misses_total", "Number of chat cache misses.", atomic.LoadUint64(&m.chatCacheMisses))
	counter(&sb, prefix, "chat_errors_total", "Number of failed chat requests.", atomic.LoadUint64(&m.chatErrors))

	hits := atomic.LoadUint64(&m.chatCacheHits)
	misses := atomic.LoadUint64(&m.chatCacheMisses)
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}
	gauge(&sb, prefix, "chat_cache_hit_rate", "Chat cache hit rate (0-1).", hitRate)

	counter(&sb, prefix, "retrieval_total", "Total number of retrieval passes.", atomic.LoadUint64(&m.retrievalTotal))
	counter(&sb, prefix, "retrieval_empty_total", "Retrievals that matched no passages.", atomic.LoadUint64(&m.retrievalEmpty))
	counter(&sb, prefix, "retrieval_errors_total", "Number of retrieval errors.", atomic.LoadUint64(&m.retrievalErrors))
	gauge(&sb, prefix, "retrieval_duration_seconds_total", "Total retrieval duration.", retrievalDuration)

	counter(&sb, prefix, "llm_calls_total", "Total number of LLM calls.", atomic.LoadUint64(&m.llmCallsTotal))
	counter(&sb, prefix, "llm_errors_total", "Number of failed LLM calls.", atomic.LoadUint64(&m.llmCallsErrors))
	counter(&sb, prefix, "llm_tokens_prompt_total", "Total prompt tokens.", atomic.LoadUint64(&m.llmTokensPrompt))
	counter(&sb, prefix, "llm_tokens_completion_total", "Total completion tokens.", atomic.LoadUint64(&m.llmTokensCompletion))
	gauge(&sb, prefix, "llm_duration_seconds_total", "Total LLM call duration.", llmDuration)

	counter(&sb, prefix, "reloads_total", "Total number of index rebuilds.", atomic.LoadUint64(&m.reloadsTotal))
	counter(&sb, prefix, "reload_errors_total", "Number of failed index rebuilds.", atomic.LoadUint64(&m.reloadsErrors))

	gauge(&sb, prefix, "uptime_seconds", "Service uptime in seconds.", time.Since(m.startTime).Seconds())

	return sb.String()
}

// Snapshot returns the request counters for the stats endpoint.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"chat_total":        int64(atomic.LoadUint64(&m.chatTotal)),
		"chat_cache_hits":   int64(atomic.LoadUint64(&m.chatCacheHits)),
		"chat_cache_misses": int64(atomic.LoadUint64(&m.chatCacheMisses)),
		"chat_errors":       int64(atomic.LoadUint64(&m.chatErrors)),
		"retrieval_total":   int64(atomic.LoadUint64(&m.retrievalTotal)),
		"retrieval_empty":   int64(atomic.LoadUint64(&m.retrievalEmpty)),
		"retrieval_errors":  int64(atomic.LoadUint64(&m.retrievalErrors)),
		"llm_calls":         int64(atomic.LoadUint64(&m.llmCallsTotal)),
		"llm_errors":        int64(atomic.LoadUint64(&m.llmCallsErrors)),
		"reloads":           int64(atomic.LoadUint64(&m.reloadsTotal)),
		"reload_errors":     int64(atomic.LoadUint64(&m.reloadsErrors)),
	}
}

// Reset zeroes all counters. Test helper.
func (m *Metrics) Reset() {
	atomic.StoreUint64(&m.chatTotal, 0)
	atomic.StoreUint64(&m.chatCacheHits, 0)
	atomic.StoreUint64(&m.chatCacheMisses, 0)
	atomic.StoreUint64(&m.chatErrors, 0)
	atomic.StoreUint64(&m.retrievalTotal, 0)
	atomic.StoreUint64(&m.retrievalEmpty, 0)
	atomic.StoreUint64(&m.retrievalErrors, 0)
	atomic.StoreUint64(&m.llmCallsTotal, 0)
	atomic.StoreUint64(&m.llmCallsErrors, 0)
	atomic.StoreUint64(&m.llmTokensPrompt, 0)
	atomic.StoreUint64(&m.llmTokensCompletion, 0)
	atomic.StoreUint64(&m.reloadsTotal, 0)
	atomic.StoreUint64(&m.reloadsErrors, 0)

	m.durationMu.Lock()
	m.retrievalDuration = 0
	m.llmDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
