package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_updates_handled_total",
		Help: "Webhook updates handled, by kind.",
	}, []string{"kind"})

	// DuplicateUpdates counts redelivered updates dropped by the dedupe
	// layer before reaching the router.
	DuplicateUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumen_duplicate_updates_total",
		Help: "Redelivered webhook updates dropped by update-id dedupe.",
	})

	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_attendance_mutations_total",
		Help: "Bulk attendance mutations issued, by action.",
	}, []string{"action"})

	undoTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_undo_total",
		Help: "Undo attempts, by outcome.",
	}, []string{"outcome"})
)
