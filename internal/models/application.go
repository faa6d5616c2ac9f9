package models

import (
	"time"
)

// ApplicationStatus enumerates application lifecycle states. Every state
// other than pending is terminal.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

// CanTransition reports whether s -> to is legal. Only pending has outgoing
// transitions.
func (s ApplicationStatus) CanTransition(to ApplicationStatus) bool {
	if s != ApplicationPending {
		return false
	}
	switch to {
	case ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s ApplicationStatus) Terminal() bool {
	return s != ApplicationPending
}

// Application is a worker's bid to perform a specific job. At most one
// application exists per (job, worker) pair, and at most one per job may be
// accepted.
type Application struct {
	ID             string            `json:"id"`
	JobID          string            `json:"job_id"`
	WorkerID       string            `json:"worker_id"`
	Message        string            `json:"message,omitempty"`
	ProposedPrice  *float64          `json:"proposed_price,omitempty"`
	EstimatedHours *float64          `json:"estimated_completion_hours,omitempty"`
	Status         ApplicationStatus `json:"status"`
	AppliedAt      time.Time         `json:"applied_at"`
	RespondedAt    *time.Time        `json:"responded_at,omitempty"`
}
