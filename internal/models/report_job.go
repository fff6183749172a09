package models

import "time"

// ReportStatus captures background job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// ReportJob tracks one asynchronous section export.
type ReportJob struct {
	ID           string               `json:"id"`
	Params       SectionExportRequest `json:"params"`
	Status       ReportStatus         `json:"status"`
	Progress     int                  `json:"progress"`
	ResultURL    *string              `json:"resultUrl,omitempty"`
	RelativePath string               `json:"relativePath,omitempty"`
	CreatedBy    string               `json:"createdBy"`
	CreatedAt    time.Time            `json:"createdAt"`
	FinishedAt   *time.Time           `json:"finishedAt,omitempty"`
	ErrorMessage *string              `json:"errorMessage,omitempty"`
}
