package transport

// StartImportRequest is the body of POST /api/v1/imports. Rows are already
// column-mapped by the client; Defaults fill fields the mapping left blank.
type StartImportRequest struct {
	Rows       []map[string]string `json:"rows" validate:"required,min=1,max=10000"`
	Defaults   map[string]string   `json:"defaults"`
	Tags       []string            `json:"tags" validate:"max=20,dive,required,max=64"`
	PipelineID string              `json:"pipelineId" validate:"omitempty,uuid"`
	Source     string              `json:"source" validate:"max=64"`
}
