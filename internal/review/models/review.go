// Package models defines reviews and the derived rating aggregate.
package models

import (
	"time"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

// Rating bounds for the optional integer score.
const (
	RatingMin = 1
	RatingMax = 5
)

// Review is one company's immutable assessment of one worker, optionally
// tied to a specific employment. Reviews are append-only: the sole deletion
// path is an appeal resolved against the review.
type Review struct {
	ID           id.ReviewID
	CompanyID    id.CompanyID
	WorkerID     id.WorkerID
	EmploymentID *id.EmploymentID
	Text         string
	Rating       *int
	CreatedAt    time.Time
}

// Validate checks the structural invariants before insert.
func (r *Review) Validate() error {
	if r.Text == "" {
		return dErrors.New(dErrors.CodeValidation, "review text is required")
	}
	if r.Rating != nil && (*r.Rating < RatingMin || *r.Rating > RatingMax) {
		return dErrors.Newf(dErrors.CodeValidation, "rating must be between %d and %d", RatingMin, RatingMax)
	}
	return nil
}

// AggregateRating is the compute-on-read summary of a worker's rated reviews.
// Average is nil when no rated reviews exist.
type AggregateRating struct {
	Average *float64
	Count   int
}

// RiskLevel is the coarse label the public lookup shows. The thresholds are
// product policy, not a statistical model.
type RiskLevel string

const (
	RiskNeutral RiskLevel = "neutral"
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
)

const (
	lowRiskThreshold    = 4.5
	mediumRiskThreshold = 3.0
)

// Risk maps an aggregate onto the label: no ratings is neutral, high averages
// are low risk, low averages high risk.
func (a AggregateRating) Risk() RiskLevel {
	if a.Average == nil || a.Count == 0 {
		return RiskNeutral
	}
	switch {
	case *a.Average >= lowRiskThreshold:
		return RiskLow
	case *a.Average >= mediumRiskThreshold:
		return RiskMedium
	default:
		return RiskHigh
	}
}
