package models

import "time"

// Activity categories recorded by record mutations.
const (
	ActivityStudentReg       = "STUDENT_REG"
	ActivityStudentUpdate    = "STUDENT_UPDATE"
	ActivityStudentDelete    = "STUDENT_DELETE"
	ActivityParentReg        = "PARENT_REG"
	ActivityParentUpdate     = "PARENT_UPDATE"
	ActivityParentDelete     = "PARENT_DELETE"
	ActivityParentLink       = "PARENT_LINK"
	ActivityTeacherReg       = "TEACHER_REG"
	ActivityTeacherUpdate    = "TEACHER_UPDATE"
	ActivityTeacherDelete    = "TEACHER_DELETE"
	ActivitySubjectReg       = "SUBJECT_REG"
	ActivitySubjectUpdate    = "SUBJECT_UPDATE"
	ActivitySubjectDelete    = "SUBJECT_DELETE"
	ActivityClassReg         = "CLASS_REG"
	ActivityClassUpdate      = "CLASS_UPDATE"
	ActivityClassDelete      = "CLASS_DELETE"
	ActivityEnrollment       = "ENROLLMENT"
	ActivityEnrollmentUpdate = "ENROLLMENT_UPDATE"
	ActivityGradeUpdate      = "GRADE_UPDATE"
	ActivitySystemUpdate     = "SYSTEM_UPDATE"
)

// Activity colours understood by the dashboard feed.
const (
	ActivityColorDefault = "bg-teal-500"
	ActivityColorDelete  = "bg-red-500"
	ActivityColorSystem  = "bg-blue-500"
)

// ActivityLog is one entry of the bounded activity feed.
type ActivityLog struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Color     string    `json:"color"`
}
