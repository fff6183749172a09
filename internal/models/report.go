package models

// SchoolHeader identifies the issuing school on rendered documents.
type SchoolHeader struct {
	Name     string `json:"name"`
	Region   string `json:"region"`
	Division string `json:"division"`
}

// SubjectGradeRow is one subject line of a student report.
type SubjectGradeRow struct {
	ClassID      string        `json:"classId"`
	EnrollmentID string        `json:"enrollmentId"`
	Subject      string        `json:"subject"`
	Teacher      string        `json:"teacher"`
	Quarters     []*int        `json:"quarters"`
	Final        *int          `json:"final"`
	Status       SubjectStatus `json:"status"`
}

// ReportDocument is the printable year report of one student.
type ReportDocument struct {
	School          SchoolHeader      `json:"school"`
	SchoolYear      string            `json:"schoolYear"`
	StudentID       string            `json:"studentId"`
	StudentName     string            `json:"studentName"`
	LRN             string            `json:"lrn"`
	GradeLevel      int               `json:"gradeLevel"`
	Section         string            `json:"section"`
	Gender          Gender            `json:"gender"`
	Subjects        []SubjectGradeRow `json:"subjects"`
	GeneralAverage  *int              `json:"generalAverage"`
	PromotionStatus PromotionStatus   `json:"promotionStatus"`
	AdviserName     string            `json:"adviserName"`
	PrincipalName   string            `json:"principalName"`
}

// SectionExportRequest asks for every report of one section in a single PDF.
type SectionExportRequest struct {
	GradeLevel int    `json:"gradeLevel" validate:"required,min=7,max=10"`
	Section    string `json:"section" validate:"required"`
	SchoolYear string `json:"schoolYear"`
}

// StudentRecord is the computed academic year of one student. GradeLevel
// and Section place the student within SchoolYear and may differ from the
// student's current placement.
type StudentRecord struct {
	Student         Student           `json:"student"`
	SchoolYear      string            `json:"schoolYear"`
	GradeLevel      int               `json:"gradeLevel"`
	Section         string            `json:"section"`
	Subjects        []SubjectGradeRow `json:"subjects"`
	GeneralAverage  *int              `json:"generalAverage"`
	PromotionStatus PromotionStatus   `json:"promotionStatus"`
}
