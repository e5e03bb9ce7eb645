package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codequay/judgecore/model"
)

const metricsNamespace = "judgecore"

var (
	// 1ms -> 10s
	timeBuckets = []float64{
		0.001, 0.002, 0.005, 0.008, 0.010, 0.025, 0.050, 0.075, 0.1, 0.2,
		0.4, 0.6, 0.8, 1.0, 1.5, 2, 5, 10,
	}

	// 4k (1<<12) -> 4g (1<<32)
	memoryBuckets = prometheus.ExponentialBuckets(1<<12, 2, 21)

	judgedCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "judged_total",
		Help:      "Number of judged tasks by overall status",
	}, []string{"status"})

	judgeErrorCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "judge_error_total",
		Help:      "Number of tasks finished with an environment failure",
	})

	caseTimeHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "case_time_seconds",
		Help:      "Histogram for per test case wall time",
		Buckets:   timeBuckets,
	}, []string{"status"})

	caseMemHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "case_memory_bytes",
		Help:      "Histogram for per test case peak memory",
		Buckets:   memoryBuckets,
	}, []string{"status"})

	queuedTasks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "tasks_in_flight",
		Help:      "Number of tasks currently being judged",
	})
)

func init() {
	prometheus.MustRegister(judgedCount, judgeErrorCount)
	prometheus.MustRegister(caseTimeHist, caseMemHist)
	prometheus.MustRegister(queuedTasks)
}

func caseObserve(tc model.TestCaseResult) {
	status := tc.Status.Short()
	caseTimeHist.WithLabelValues(status).Observe(tc.Time.Seconds())
	caseMemHist.WithLabelValues(status).Observe(float64(tc.Memory))
}

func resultObserve(r *model.JudgeResult) {
	judgedCount.WithLabelValues(r.Status.Short()).Inc()
	if r.Status == model.SystemError {
		judgeErrorCount.Inc()
	}
}
