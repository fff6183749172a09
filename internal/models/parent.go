package models

import "strings"

// Relationship labels recorded on a parent link.
const (
	RelationshipFather   = "FATHER"
	RelationshipMother   = "MOTHER"
	RelationshipGuardian = "GUARDIAN"
)

// Parent is a parent or guardian contact.
type Parent struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	ContactNumber string `json:"contactNumber"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Address       string `json:"address,omitempty"`
}

// DisplayName renders "FIRST LAST" in upper case, the form stored on student records.
func (p Parent) DisplayName() string {
	return strings.ToUpper(strings.TrimSpace(p.FirstName + " " + p.LastName))
}

// Normalize upper-cases the parent's names.
func (p *Parent) Normalize() {
	p.FirstName = strings.ToUpper(strings.TrimSpace(p.FirstName))
	p.LastName = strings.ToUpper(strings.TrimSpace(p.LastName))
}

// ParentLink associates a parent with a student by identifier.
type ParentLink struct {
	ID           string `json:"id"`
	ParentID     string `json:"parentId"`
	StudentID    string `json:"studentId"`
	Relationship string `json:"relationship"`
}

// LinkedStudent is a student as seen from a parent record.
type LinkedStudent struct {
	Link         ParentLink `json:"link"`
	Student      Student    `json:"student"`
	Relationship string     `json:"relationship"`
}

// LinkedParent is a parent as seen from a student record.
type LinkedParent struct {
	Link         ParentLink `json:"link"`
	Parent       Parent     `json:"parent"`
	Relationship string     `json:"relationship"`
}

// ParentFilter captures parent list parameters.
type ParentFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
