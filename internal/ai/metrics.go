package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tale_forge_ai_requests_total",
			Help: "Total number of requests to AI providers.",
		},
		[]string{"provider", "model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tale_forge_ai_request_duration_seconds",
			Help:    "Histogram of AI provider request durations.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tale_forge_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 12),
		},
		[]string{"provider", "model"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tale_forge_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 15),
		},
		[]string{"provider", "model"},
	)
	aiFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tale_forge_ai_fallbacks_total",
			Help: "Number of times the fallback provider was used, by reason.",
		},
		[]string{"reason"},
	)
	aiParseOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tale_forge_ai_parse_outcomes_total",
			Help: "Choice parsing outcomes per provider.",
		},
		[]string{"provider", "outcome"},
	)
)

func observeUsage(provider, model string, usage UsageInfo) {
	if usage.TotalTokens == 0 {
		return
	}
	labels := prometheus.Labels{"provider": provider, "model": model}
	aiPromptTokens.With(labels).Observe(float64(usage.PromptTokens))
	aiCompletionTokens.With(labels).Observe(float64(usage.CompletionTokens))
}
