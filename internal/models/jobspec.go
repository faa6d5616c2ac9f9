package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"marketplace-engine/internal/apperr"
)

var validate = validator.New()

// JobSpec is the caller-supplied shape for creating a job, used by both the
// single-create path and the bulk orchestrator.
type JobSpec struct {
	Title          string     `json:"title" validate:"required,max=200"`
	Description    string     `json:"description" validate:"max=5000"`
	Category       string     `json:"category" validate:"required,max=100"`
	RequiredSkills []string   `json:"required_skills" validate:"max=20,dive,required"`
	Address        string     `json:"address" validate:"required"`
	Latitude       *float64   `json:"latitude" validate:"required"`
	Longitude      *float64   `json:"longitude" validate:"required"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	Zip            string     `json:"zip"`
	Price          *float64   `json:"price" validate:"required"`
	PriceType      PriceType  `json:"price_type" validate:"omitempty,oneof=fixed hourly"`
	Urgency        Urgency    `json:"urgency" validate:"omitempty,oneof=low normal high urgent"`
	EstimatedHours *float64   `json:"estimated_duration_hours" validate:"omitempty,gt=0"`
	ScheduledStart *time.Time `json:"scheduled_start"`
}

// Normalize fills enum defaults so downstream code sees a closed value set.
func (s *JobSpec) Normalize() {
	if s.PriceType == "" {
		s.PriceType = PriceFixed
	}
	if s.Urgency == "" {
		s.Urgency = UrgencyNormal
	}
	if s.RequiredSkills == nil {
		s.RequiredSkills = []string{}
	}
}

// Validate checks structural and range constraints, returning a typed
// validation error listing every failed field.
func (s *JobSpec) Validate() error {
	s.Normalize()
	var problems []string
	if err := validate.Struct(s); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return apperr.Validation(err.Error())
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("field %q failed on %q", fe.Field(), fe.Tag()))
		}
	}
	if s.Latitude != nil && (*s.Latitude < -90 || *s.Latitude > 90) {
		problems = append(problems, "latitude must be within [-90, 90]")
	}
	if s.Longitude != nil && (*s.Longitude < -180 || *s.Longitude > 180) {
		problems = append(problems, "longitude must be within [-180, 180]")
	}
	if s.Price != nil && *s.Price < 0 {
		problems = append(problems, "price must be >= 0")
	}
	if len(problems) > 0 {
		return apperr.Validation(strings.Join(problems, "; "))
	}
	return nil
}

// JobUpdate carries the poster-editable fields for a job still open.
// Nil fields are left unchanged.
type JobUpdate struct {
	Title          *string    `json:"title" validate:"omitempty,max=200"`
	Description    *string    `json:"description" validate:"omitempty,max=5000"`
	Category       *string    `json:"category" validate:"omitempty,max=100"`
	RequiredSkills []string   `json:"required_skills"`
	Price          *float64   `json:"price"`
	Urgency        *Urgency   `json:"urgency" validate:"omitempty,oneof=low normal high urgent"`
	ScheduledStart *time.Time `json:"scheduled_start"`
}

// Validate checks the populated fields of an update.
func (u *JobUpdate) Validate() error {
	if err := validate.Struct(u); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("field %q failed on %q", fe.Field(), fe.Tag()))
			}
			return apperr.Validation(strings.Join(parts, "; "))
		}
		return apperr.Validation(err.Error())
	}
	if u.Price != nil && *u.Price < 0 {
		return apperr.Validation("price must be >= 0")
	}
	return nil
}
