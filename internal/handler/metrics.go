package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var apiErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tale_forge_api_errors_total",
		Help: "Error responses by error code.",
	},
	[]string{"code"},
)
