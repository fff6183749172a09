package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ReportCard holds quarterly grades for one enrollment.
type ReportCard struct {
	ID           string `json:"id"`
	EnrollmentID string `json:"enrollmentId"`
	Q1           *int   `json:"q1,omitempty"`
	Q2           *int   `json:"q2,omitempty"`
	Q3           *int   `json:"q3,omitempty"`
	Q4           *int   `json:"q4,omitempty"`
	Remarks      string `json:"remarks"`
}

// ReportCardID derives the report card key of an enrollment.
func ReportCardID(enrollmentID string) string {
	return "RC_" + enrollmentID
}

// Quarters returns the quarter grades in order.
func (r *ReportCard) Quarters() []*int {
	if r == nil {
		return []*int{nil, nil, nil, nil}
	}
	return []*int{r.Q1, r.Q2, r.Q3, r.Q4}
}

// SubjectStatus is the derived state of a subject grade.
type SubjectStatus string

const (
	SubjectStatusOngoing SubjectStatus = "ongoing"
	SubjectStatusPassed  SubjectStatus = "passed"
	SubjectStatusFailed  SubjectStatus = "failed"
)

// PromotionStatus is the derived year-end standing of a student.
type PromotionStatus string

const (
	PromotionPending  PromotionStatus = "PENDING"
	PromotionPromoted PromotionStatus = "PROMOTED"
	PromotionRetained PromotionStatus = "RETAINED"
)

// GradingSheetRow is one learner line of a class grading manifest.
type GradingSheetRow struct {
	EnrollmentID string        `json:"enrollmentId"`
	StudentID    string        `json:"studentId"`
	StudentName  string        `json:"studentName"`
	LRN          string        `json:"lrn"`
	Quarters     []*int        `json:"quarters"`
	Final        *int          `json:"final"`
	Status       SubjectStatus `json:"status"`
	Remarks      string        `json:"remarks"`
}

// GradingSheet is the grading manifest of one class.
type GradingSheet struct {
	Class       ClassDetail       `json:"class"`
	TeacherName string            `json:"teacherName"`
	AdviserName string            `json:"adviserName"`
	Rows        []GradingSheetRow `json:"rows"`
}

// OptionalGrade is a quarter grade in a request body. It accepts a number,
// a numeric string, an empty string or null; the last two mean "not yet graded".
type OptionalGrade struct {
	Value *int
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *OptionalGrade) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		g.Value = nil
		return nil
	}
	raw = strings.Trim(raw, `"`)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		g.Value = nil
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("grade %q is not a whole number", raw)
	}
	g.Value = &n
	return nil
}

// MarshalJSON implements json.Marshaler.
func (g OptionalGrade) MarshalJSON() ([]byte, error) {
	if g.Value == nil {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(*g.Value)), nil
}

// Grade wraps n.
func Grade(n int) OptionalGrade {
	return OptionalGrade{Value: &n}
}
