package service

import (
	"context"
	"time"

	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

// appealSLA is how long an appeal may stay open before it counts as overdue
// on the dashboard.
const appealSLA = 48 * time.Hour

// Dashboard is the one-screen operations summary.
type Dashboard struct {
	WorkersTotal       int
	WorkersToday       int
	WorkersWeek        int
	CompaniesTotal     int
	CompaniesToday     int
	CompaniesWeek      int
	EmploymentsOpen    int
	EmploymentsEnded   int
	ReviewsTotal       int
	ReviewsWeek        int
	AppealsOpen        int
	AppealsOverdue     int
	SubscriptionsLive  int
	SubscriptionsLapse int
}

// BuildDashboard assembles the reporting aggregate. Reads only; each figure
// comes from the owning domain service.
func (s *Service) BuildDashboard(ctx context.Context) (*Dashboard, error) {
	now := requestcontext.Now(ctx)
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	var d Dashboard

	workersDay, err := s.identity.WorkerCounts(ctx, dayAgo)
	if err != nil {
		return nil, err
	}
	workersWeek, err := s.identity.WorkerCounts(ctx, weekAgo)
	if err != nil {
		return nil, err
	}
	d.WorkersTotal = workersDay.Total
	d.WorkersToday = workersDay.Recent
	d.WorkersWeek = workersWeek.Recent

	companiesDay, err := s.identity.CompanyCounts(ctx, dayAgo)
	if err != nil {
		return nil, err
	}
	companiesWeek, err := s.identity.CompanyCounts(ctx, weekAgo)
	if err != nil {
		return nil, err
	}
	d.CompaniesTotal = companiesDay.Total
	d.CompaniesToday = companiesDay.Recent
	d.CompaniesWeek = companiesWeek.Recent

	d.EmploymentsOpen, d.EmploymentsEnded, err = s.employments.Counts(ctx)
	if err != nil {
		return nil, err
	}

	d.ReviewsTotal, err = s.reviews.Count(ctx)
	if err != nil {
		return nil, err
	}
	d.ReviewsWeek, err = s.reviews.CountCreatedSince(ctx, weekAgo)
	if err != nil {
		return nil, err
	}

	d.AppealsOpen, err = s.appeals.CountOpen(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count open appeals")
	}
	d.AppealsOverdue, err = s.appeals.CountOpenOlderThan(ctx, now.Add(-appealSLA))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count overdue appeals")
	}

	d.SubscriptionsLive, d.SubscriptionsLapse, err = s.identity.SubscriptionCounts(ctx, now)
	if err != nil {
		return nil, err
	}

	return &d, nil
}
