package models

import "strings"

// Subject is a course of study offered to one or more grade levels.
type Subject struct {
	ID           string `json:"id"`
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description,omitempty"`
	HoursPerWeek int    `json:"hoursPerWeek" validate:"min=0,max=40"`
	GradeLevels  []int  `json:"gradeLevels" validate:"required,min=1,dive,min=7,max=10"`
}

// Normalize upper-cases the subject name.
func (s *Subject) Normalize() {
	s.Name = strings.ToUpper(strings.TrimSpace(s.Name))
}

// OffersGrade reports whether the subject is offered at the given level.
func (s Subject) OffersGrade(level int) bool {
	for _, g := range s.GradeLevels {
		if g == level {
			return true
		}
	}
	return false
}

// SubjectFilter captures subject list parameters.
type SubjectFilter struct {
	Search     string
	GradeLevel int
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
