package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(tasksProcessedTotal, tasksDroppedTotal, cronRunsTotal)
}

var (
	tasksProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_processed_total",
			Help: "Background tasks processed by the worker pool, labeled by task and status.",
		},
		[]string{"task", "status"}, // 'completed', 'retried', 'failed'
	)

	tasksDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_dropped_total",
			Help: "Tasks rejected because the worker queue was full or stopped.",
		},
		[]string{"task"},
	)

	cronRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cron_runs_total",
			Help: "Scheduled job runs, labeled by job and outcome.",
		},
		[]string{"job", "result"}, // 'ok', 'error', 'skipped'
	)
)

func IncTask(task, status string) {
	tasksProcessedTotal.WithLabelValues(norm(task), norm(status)).Inc()
}

func IncTaskDropped(task string) {
	tasksDroppedTotal.WithLabelValues(norm(task)).Inc()
}

func IncCronRun(job, result string) {
	cronRunsTotal.WithLabelValues(norm(job), norm(result)).Inc()
}
