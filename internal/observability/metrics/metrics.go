package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylanka_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paylanka_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	SchedulerJobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylanka_scheduler_job_runs_total",
		Help: "Scheduler job executions.",
	}, []string{"job"})

	SchedulerJobErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylanka_scheduler_job_errors_total",
		Help: "Scheduler job executions that returned an error.",
	}, []string{"job"})

	MonthlyInvoicesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylanka_monthly_invoices_issued_total",
		Help: "Monthly invoices issued by the scheduler.",
	})

	SubscriptionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylanka_subscriptions_expired_total",
		Help: "Subscriptions moved to EXPIRED by the scheduler.",
	})

	PaymentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylanka_payment_events_total",
		Help: "Gateway payment events by gateway and outcome.",
	}, []string{"gateway", "type"})

	WebhookRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylanka_webhook_rejections_total",
		Help: "Webhook requests rejected before processing.",
	}, []string{"gateway", "reason"})
)
