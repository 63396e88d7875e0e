package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the registry core.
type Metrics struct {
	WorkersRegistered   prometheus.Counter
	CompaniesRegistered prometheus.Counter
	EmploymentsCreated  prometheus.Counter
	EmploymentsEnded    prometheus.Counter
	LeaveAutoClosed     prometheus.Counter
	ReviewsCreated      prometheus.Counter
	AppealsFiled        prometheus.Counter
	AppealsAutoRemoved  prometheus.Counter
	AppealReminders     prometheus.Counter
	StatesExpired       prometheus.Counter
	PassportsMigrated   prometheus.Counter
}

// Increment helpers are nil-safe so services can run without a metrics
// handle in tests.
func (m *Metrics) IncWorkersRegistered() {
	if m != nil {
		m.WorkersRegistered.Inc()
	}
}

func (m *Metrics) IncCompaniesRegistered() {
	if m != nil {
		m.CompaniesRegistered.Inc()
	}
}

func (m *Metrics) IncEmploymentsCreated() {
	if m != nil {
		m.EmploymentsCreated.Inc()
	}
}

func (m *Metrics) IncEmploymentsEnded() {
	if m != nil {
		m.EmploymentsEnded.Inc()
	}
}

func (m *Metrics) AddLeaveAutoClosed(n int) {
	if m != nil {
		m.LeaveAutoClosed.Add(float64(n))
	}
}

func (m *Metrics) IncReviewsCreated() {
	if m != nil {
		m.ReviewsCreated.Inc()
	}
}

func (m *Metrics) IncAppealsFiled() {
	if m != nil {
		m.AppealsFiled.Inc()
	}
}

func (m *Metrics) IncAppealsAutoRemoved() {
	if m != nil {
		m.AppealsAutoRemoved.Inc()
	}
}

func (m *Metrics) IncAppealReminders() {
	if m != nil {
		m.AppealReminders.Inc()
	}
}

func (m *Metrics) AddStatesExpired(n int) {
	if m != nil {
		m.StatesExpired.Add(float64(n))
	}
}

func (m *Metrics) IncPassportsMigrated() {
	if m != nil {
		m.PassportsMigrated.Inc()
	}
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		WorkersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registry_workers_registered_total",
			Help: "Total number of workers registered",
		}),
		CompaniesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registry_companies_registered_total",
			Help: "Total number of companies registered",
		}),
		EmploymentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registry_employments_created_total",
			Help: "Total number of employment link requests created",
		}),
		EmploymentsEnded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registry_employments_ended_total",
			Help: "Total number of employments ended",
		}),
		LeaveAutoClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registry_leave_requests_auto_closed_total",
			Help: "Leave requests closed automatically after the company response timeout",
		}),
		ReviewsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registry_reviews_created_total",
			Help: "Total number of reviews created",
		}),
		AppealsFiled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registry_appeals_filed_total",
			Help: "Total number of review appeals filed",
		}),
		AppealsAutoRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registry_appeals_auto_removed_total",
			Help: "Appeals resolved automatically against a silent company",
		}),
		AppealReminders: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registry_appeal_reminders_sent_total",
			Help: "Reminder notifications sent to companies with unanswered appeals",
		}),
		StatesExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registry_conversation_states_expired_total",
			Help: "Conversation states removed by the expiry sweep",
		}),
		PassportsMigrated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registry_passports_migrated_total",
			Help: "Passport values re-encrypted from the legacy key on read",
		}),
	}
}
