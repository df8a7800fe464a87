package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskImportRun = "imports.run"

// ImportRunPayload carries a whole import job. Rows are column-mapped records.
type ImportRunPayload struct {
	JobID      string              `json:"jobId"`
	Rows       []map[string]string `json:"rows"`
	Defaults   map[string]string   `json:"defaults,omitempty"`
	Tags       []string            `json:"tags,omitempty"`
	PipelineID *string             `json:"pipelineId,omitempty"`
	Source     string              `json:"source,omitempty"`
	Actor      string              `json:"actor"`
}

func NewImportRunTask(payload ImportRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskImportRun, data), nil
}

func ParseImportRunPayload(task *asynq.Task) (ImportRunPayload, error) {
	var payload ImportRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ImportRunPayload{}, err
	}
	return payload, nil
}
