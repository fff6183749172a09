package models

// EnrollmentStatus captures the roster state of a student in a class.
type EnrollmentStatus string

const (
	EnrollmentStatusActive      EnrollmentStatus = "active"
	EnrollmentStatusDropped     EnrollmentStatus = "dropped"
	EnrollmentStatusTransferred EnrollmentStatus = "transferred"
)

// Valid reports whether s is a known roster state.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusActive, EnrollmentStatusDropped, EnrollmentStatusTransferred:
		return true
	}
	return false
}

// Enrollment links a student to a class.
type Enrollment struct {
	ID        string           `json:"id"`
	StudentID string           `json:"studentId"`
	ClassID   string           `json:"classId"`
	Status    EnrollmentStatus `json:"status"`
}

// EnrollmentID derives the composite key of a (student, class) pair.
func EnrollmentID(studentID, classID string) string {
	return studentID + "_" + classID
}

// EnrollmentDetail decorates an enrollment with student and class names.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `json:"studentName"`
	LRN         string `json:"lrn"`
	SubjectName string `json:"subjectName"`
	SectionName string `json:"sectionName"`
	SchoolYear  string `json:"schoolYear"`
}

// EnrollmentFilter captures enrollment list parameters.
type EnrollmentFilter struct {
	StudentID string
	ClassID   string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
}
