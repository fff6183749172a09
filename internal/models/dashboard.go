package models

import "time"

// GradeBucket is one band of the final grade distribution.
type GradeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DashboardSummary aggregates headline counts for the active year.
type DashboardSummary struct {
	ActiveYear        string        `json:"activeYear"`
	Students          int           `json:"students"`
	ActiveStudents    int           `json:"activeStudents"`
	Teachers          int           `json:"teachers"`
	Subjects          int           `json:"subjects"`
	Classes           int           `json:"classes"`
	ActiveEnrollments int           `json:"activeEnrollments"`
	GradeDistribution []GradeBucket `json:"gradeDistribution"`
	PassingRate       float64       `json:"passingRate"`
	RecentActivity    []ActivityLog `json:"recentActivity"`
	GeneratedAt       time.Time     `json:"generatedAt"`
}
