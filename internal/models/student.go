package models

import "strings"

// Gender values accepted on a learner profile.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// StudentStatus captures the learner lifecycle.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusInactive  StudentStatus = "inactive"
	StudentStatusPending   StudentStatus = "pending"
	StudentStatusGraduated StudentStatus = "graduated"
	StudentStatusWithdrawn StudentStatus = "withdrawn"
)

// Student represents a learner registered in the school.
type Student struct {
	ID                   string        `json:"id"`
	LRN                  string        `json:"lrn" validate:"required,numeric,len=12"`
	FirstName            string        `json:"firstName" validate:"required"`
	MiddleName           string        `json:"middleName,omitempty"`
	LastName             string        `json:"lastName" validate:"required"`
	Gender               Gender        `json:"gender" validate:"required,oneof=male female other"`
	DateOfBirth          string        `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	PlaceOfBirth         string        `json:"placeOfBirth"`
	Address              string        `json:"address,omitempty"`
	Religion             string        `json:"religion,omitempty"`
	ContactNumber        string        `json:"contactNumber"`
	Email                string        `json:"email,omitempty" validate:"omitempty,email"`
	EnrollmentDate       string        `json:"enrollmentDate" validate:"omitempty,datetime=2006-01-02"`
	GradeLevel           int           `json:"gradeLevel" validate:"required,min=7,max=10"`
	Section              string        `json:"section" validate:"required"`
	Status               StudentStatus `json:"status" validate:"required,oneof=active inactive pending graduated withdrawn"`
	MotherName           string        `json:"motherName"`
	FatherName           string        `json:"fatherName"`
	GuardianName         string        `json:"guardianName"`
	GuardianRelationship string        `json:"guardianRelationship"`
	GuardianContact      string        `json:"guardianContact"`
	PreviousSchool       string        `json:"previousSchool,omitempty"`
}

// FullName renders "LAST, FIRST MIDDLE".
func (s Student) FullName() string {
	name := s.LastName + ", " + s.FirstName
	if s.MiddleName != "" {
		name += " " + s.MiddleName
	}
	return name
}

// Normalize upper-cases the name and section fields the way records are kept.
func (s *Student) Normalize() {
	s.FirstName = strings.ToUpper(strings.TrimSpace(s.FirstName))
	s.MiddleName = strings.ToUpper(strings.TrimSpace(s.MiddleName))
	s.LastName = strings.ToUpper(strings.TrimSpace(s.LastName))
	s.Section = strings.ToUpper(strings.TrimSpace(s.Section))
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	GradeLevel int
	Status     StudentStatus
	Section    string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
