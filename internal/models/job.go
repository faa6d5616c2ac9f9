package models

import (
	"time"
)

// JobStatus enumerates job lifecycle states persisted in Postgres.
type JobStatus string

const (
	JobOpen       JobStatus = "open"
	JobAssigned   JobStatus = "assigned"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
	JobDisputed   JobStatus = "disputed"
)

// jobTransitions is the closed transition table. Completed, cancelled and
// disputed are terminal.
var jobTransitions = map[JobStatus][]JobStatus{
	JobOpen:       {JobAssigned, JobCancelled},
	JobAssigned:   {JobInProgress, JobDisputed},
	JobInProgress: {JobCompleted, JobDisputed},
}

// Valid reports whether s is a member of the closed status set.
func (s JobStatus) Valid() bool {
	switch s {
	case JobOpen, JobAssigned, JobInProgress, JobCompleted, JobCancelled, JobDisputed:
		return true
	}
	return false
}

// CanTransition reports whether s -> to is a legal transition.
func (s JobStatus) CanTransition(to JobStatus) bool {
	for _, t := range jobTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s JobStatus) Terminal() bool {
	return len(jobTransitions[s]) == 0
}

// PriceType enumerates how a job's price is quoted.
type PriceType string

const (
	PriceFixed  PriceType = "fixed"
	PriceHourly PriceType = "hourly"
)

// Urgency enumerates scheduling urgency levels.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// Job is a unit of work posted by a poster, possibly assigned to one worker.
// WorkerID is non-nil iff status is assigned, in_progress, completed or
// disputed.
type Job struct {
	ID             string     `json:"id"`
	PosterID       string     `json:"poster_id"`
	WorkerID       *string    `json:"worker_id,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	RequiredSkills []string   `json:"required_skills"`
	Address        string     `json:"address"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	City           string     `json:"city,omitempty"`
	State          string     `json:"state,omitempty"`
	Zip            string     `json:"zip,omitempty"`
	Price          float64    `json:"price"`
	PriceType      PriceType  `json:"price_type"`
	Urgency        Urgency    `json:"urgency"`
	EstimatedHours *float64   `json:"estimated_duration_hours,omitempty"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ActualStart    *time.Time `json:"actual_start,omitempty"`
	ActualEnd      *time.Time `json:"actual_end,omitempty"`
	Status         JobStatus  `json:"status"`
	CompletionNotes *string   `json:"completion_notes,omitempty"`
	PosterRating   *int       `json:"poster_rating,omitempty"`
	WorkerRating   *int       `json:"worker_rating,omitempty"`
	PosterReview   *string    `json:"poster_review,omitempty"`
	WorkerReview   *string    `json:"worker_review,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
