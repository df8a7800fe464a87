package transport

// MoveEntryRequest is the body of the move and preview endpoints.
type MoveEntryRequest struct {
	ToStageID string `json:"toStageId" validate:"required,uuid"`
}

// InscribeLeadRequest is the body of the inscription endpoint.
type InscribeLeadRequest struct {
	LeadID string `json:"leadId" validate:"required,uuid"`
}

// ChecklistItemRequest is the body of the checklist toggle endpoint.
type ChecklistItemRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}
