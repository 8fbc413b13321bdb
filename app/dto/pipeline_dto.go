package dto

// ContactRecordDTO is one contact observation submitted for resolution.
// Identifier fields are deliberately loose; normalization downstream decides
// what is usable and a record failing validation here was empty outright.
type ContactRecordDTO struct {
	Email     string `json:"email" validate:"omitempty,max=320"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Name      string `json:"name" validate:"omitempty,max=256"`
	SourceID  string `json:"source_id" validate:"omitempty,max=128"`
	FirstSeen string `json:"first_seen" validate:"omitempty"` // RFC3339 or YYYY-MM-DD
}

// ResolveContactsRequest represents a batch resolution request
type ResolveContactsRequest struct {
	Source  string             `json:"source" validate:"required,max=64"`
	Records []ContactRecordDTO `json:"records" validate:"required,min=1,max=10000,dive"`
}

// ImportContactsResponse wraps a file import outcome
type ImportContactsResponse struct {
	Filename    string `json:"filename"`
	RowsRead    int    `json:"rows_read"`
	RowsSkipped int    `json:"rows_skipped"`
	Resolution  any    `json:"resolution"`
}

// RunEvaluationResponse acknowledges a manually triggered evaluation run
type RunEvaluationResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}
