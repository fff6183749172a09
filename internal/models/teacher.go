package models

import "strings"

// Teacher represents a faculty member.
type Teacher struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	Department    string `json:"department" validate:"required"`
	ContactNumber string `json:"contactNumber"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	HireDate      string `json:"hireDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Normalize upper-cases the teacher's names and department.
func (t *Teacher) Normalize() {
	t.FirstName = strings.ToUpper(strings.TrimSpace(t.FirstName))
	t.LastName = strings.ToUpper(strings.TrimSpace(t.LastName))
	t.Department = strings.ToUpper(strings.TrimSpace(t.Department))
}

// FormalName renders "LAST, FIRST".
func (t Teacher) FormalName() string {
	return t.LastName + ", " + t.FirstName
}

// ShortName renders "LAST, F." as printed on grading sheets.
func (t Teacher) ShortName() string {
	if t.FirstName == "" {
		return t.LastName
	}
	return t.LastName + ", " + t.FirstName[:1] + "."
}

// TeacherFilter captures teacher list parameters.
type TeacherFilter struct {
	Search     string
	Department string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
