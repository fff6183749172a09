package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int       `json:"total_count"`
	TotalPages int       `json:"total_pages"`
	Sort       *SortMeta `json:"sort,omitempty"`
}

// SortMeta echoes the sort applied to a list.
type SortMeta struct {
	Key           string `json:"key"`
	Direction     string `json:"direction"`
	NextDirection string `json:"next_direction"`
}
