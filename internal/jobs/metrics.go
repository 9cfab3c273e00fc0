package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "lumen_job_sends_total",
	Help: "Notification sends attempted by the job runner, by job and outcome.",
}, []string{"job", "outcome"})
