package models

import "strings"

// DefaultClassCapacity applies when a class is saved without a capacity.
const DefaultClassCapacity = 40

// Class is a subject offering taught by one teacher to one section for a school year.
type Class struct {
	ID          string `json:"id"`
	SubjectID   string `json:"subjectId" validate:"required"`
	TeacherID   string `json:"teacherId" validate:"required"`
	GradeLevel  int    `json:"gradeLevel" validate:"required,min=7,max=10"`
	SectionName string `json:"sectionName" validate:"required"`
	SchoolYear  string `json:"schoolYear" validate:"required"`
	RoomNumber  string `json:"roomNumber,omitempty"`
	MaxCapacity int    `json:"maxCapacity" validate:"min=0"`
	IsAdviser   bool   `json:"isAdviser"`
}

// Normalize upper-cases the section and room, and fills the default capacity.
func (c *Class) Normalize() {
	c.SectionName = strings.ToUpper(strings.TrimSpace(c.SectionName))
	c.RoomNumber = strings.ToUpper(strings.TrimSpace(c.RoomNumber))
	if c.MaxCapacity <= 0 {
		c.MaxCapacity = DefaultClassCapacity
	}
}

// SameSection reports whether both classes belong to the same section and year.
func (c Class) SameSection(other Class) bool {
	return c.GradeLevel == other.GradeLevel &&
		strings.EqualFold(c.SectionName, other.SectionName) &&
		c.SchoolYear == other.SchoolYear
}

// ClassDetail decorates a class with resolved names and roster counts.
type ClassDetail struct {
	Class
	SubjectName    string `json:"subjectName"`
	TeacherName    string `json:"teacherName"`
	ActiveEnrolled int    `json:"activeEnrolled"`
	Archived       bool   `json:"archived"`
}

// ClassFilter captures class list parameters.
type ClassFilter struct {
	Search     string
	GradeLevel int
	SchoolYear string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
