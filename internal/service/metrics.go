package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tale_forge_generation_requests_total",
		Help: "Generation requests by kind and outcome.",
	}, []string{"kind", "outcome"})

	creditsCharged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tale_forge_credits_charged_total",
		Help: "Credits debited for story generation.",
	})

	creditsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tale_forge_credits_granted_total",
		Help: "Credits granted by administrators.",
	})

	mediaTasksPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tale_forge_media_tasks_published_total",
		Help: "Media tasks handed to the workers, by kind and outcome.",
	}, []string{"kind", "outcome"})
)

// Generation outcomes, used as metric labels.
const (
	outcomeSuccess     = "success"
	outcomeInvalid     = "invalid"
	outcomeRejected    = "rejected"
	outcomeAIFailed    = "ai_failed"
	outcomePersistFail = "persist_failed"
	outcomeError       = "error"
)
