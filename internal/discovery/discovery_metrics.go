// internal/discovery/discovery_metrics.go
package discovery

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the discovery subsystem.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	RunCandidates      prometheus.Histogram
	RunRejectedKnown   prometheus.Histogram
	RunErrors          prometheus.Histogram
	BranchesTotal      *prometheus.CounterVec
	BranchDuration     *prometheus.HistogramVec
	VerificationsTotal *prometheus.CounterVec
	VerificationSize   prometheus.Histogram
	VerificationTime   prometheus.Histogram
	SubmitsTotal       *prometheus.CounterVec
}

// NewMetrics registers and returns discovery metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tandem_runs_total",
			Help: "Total discovery runs by terminal state and mode.",
		}, []string{"state", "mode"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tandem_run_duration_seconds",
			Help:    "Duration of discovery runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}, []string{"state"}),
		RunCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tandem_run_candidates",
			Help:    "Ranked candidates per completed run.",
			Buckets: prometheus.LinearBuckets(0, 2, 12), // 0 .. 22
		}),
		RunRejectedKnown: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tandem_run_rejected_known",
			Help:    "Known targets excluded from the pool per run.",
			Buckets: prometheus.LinearBuckets(0, 1, 10), // 0 .. 9
		}),
		RunErrors: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tandem_run_errors",
			Help:    "Absorbed collaborator errors per run.",
			Buckets: prometheus.LinearBuckets(0, 1, 8), // 0 .. 7
		}),
		BranchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tandem_branches_total",
			Help: "Total gathering branch executions by skill and status.",
		}, []string{"skill", "status"}),
		BranchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tandem_branch_duration_seconds",
			Help:    "Duration of gathering branches in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		}, []string{"skill"}),
		VerificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tandem_verifications_total",
			Help: "Total deferred verification dispatches by result.",
		}, []string{"result"}),
		VerificationSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tandem_verification_candidates",
			Help:    "Candidates submitted to deferred verification.",
			Buckets: prometheus.LinearBuckets(0, 2, 12), // 0 .. 22
		}),
		VerificationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tandem_verification_duration_seconds",
			Help:    "Duration of deferred verification in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tandem_submits_total",
			Help: "Total task submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RunCandidates,
		m.RunRejectedKnown,
		m.RunErrors,
		m.BranchesTotal,
		m.BranchDuration,
		m.VerificationsTotal,
		m.VerificationSize,
		m.VerificationTime,
		m.SubmitsTotal,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnBranch: func(skill, status string, seconds float64) {
			m.BranchesTotal.WithLabelValues(skill, status).Inc()
			m.BranchDuration.WithLabelValues(skill).Observe(seconds)
		},
		OnVerification: func(candidates int, seconds float64, failed bool) {
			result := "success"
			if failed {
				result = "error"
			}
			m.VerificationsTotal.WithLabelValues(result).Inc()
			m.VerificationSize.Observe(float64(candidates))
			m.VerificationTime.Observe(seconds)
		},
		OnComplete: func(e *CompleteEvent) {
			m.RunsTotal.WithLabelValues(string(e.State), string(e.Mode)).Inc()
			m.RunDuration.WithLabelValues(string(e.State)).Observe(e.Duration)
			m.RunCandidates.Observe(float64(e.Candidates))
			m.RunRejectedKnown.Observe(float64(e.Rejected))
			m.RunErrors.Observe(float64(e.Errors))
		},
	}
}
