// Package transition decides whether a pipeline entry may move between stages
// and performs the move once the rules allow it.
package transition

import (
	"fmt"
	"strings"

	"pipeline_backend/internal/pipelines/domain"
)

// MsgAlreadyInStage is returned when the requested stage is the current stage.
const MsgAlreadyInStage = "lead already in this stage"

// ChecklistStatus pairs a checklist item with its completion flag.
type ChecklistStatus struct {
	Item      domain.ChecklistItem
	Completed bool
}

// Request is the input of a single move decision.
type Request struct {
	Entry domain.Entry
	From  domain.Stage
	To    domain.Stage
	// Checklist holds the items of From with their completion state.
	Checklist []ChecklistStatus
	// TargetOccupancy is the number of active entries already in To.
	TargetOccupancy int
}

// Result carries the decision. Cancelled marks a no-op request, which is
// neither allowed nor blocked.
type Result struct {
	CanMove   bool     `json:"canMove"`
	Cancelled bool     `json:"cancelled"`
	Message   string   `json:"message,omitempty"`
	Blockers  []string `json:"blockers"`
	Warnings  []string `json:"warnings"`
}

// BlockerMessage joins the blockers for display.
func (r Result) BlockerMessage() string {
	return strings.Join(r.Blockers, "; ")
}

// BuildChecklist combines stage items with a lead's completion state.
func BuildChecklist(items []domain.ChecklistItem, state domain.ChecklistState) []ChecklistStatus {
	out := make([]ChecklistStatus, 0, len(items))
	for _, item := range items {
		out = append(out, ChecklistStatus{Item: item, Completed: state[item.ID]})
	}
	return out
}

// Validate evaluates the move rules in order. It has no side effects.
func Validate(req Request) Result {
	result := Result{Blockers: []string{}, Warnings: []string{}}

	if req.From.ID == req.To.ID {
		result.Cancelled = true
		result.Message = MsgAlreadyInStage
		return result
	}

	if !req.Entry.IsActive() {
		result.Blockers = append(result.Blockers, fmt.Sprintf("entry is %s, only active entries can move", req.Entry.Status))
	}
	if req.To.PipelineID != req.Entry.PipelineID {
		result.Blockers = append(result.Blockers, fmt.Sprintf("stage %q does not belong to this pipeline", req.To.Name))
	}

	regression := req.To.Order < req.From.Order

	if !regression {
		missing, optional := incompleteItems(req.Checklist)
		if len(missing) > 0 {
			result.Blockers = append(result.Blockers,
				fmt.Sprintf("required checklist items incomplete: %s", strings.Join(missing, ", ")))
		}
		if len(optional) > 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("optional checklist items incomplete: %s", strings.Join(optional, ", ")))
		}
	}

	if req.To.WIPLimit != nil && req.TargetOccupancy >= *req.To.WIPLimit {
		result.Blockers = append(result.Blockers,
			fmt.Sprintf("stage %q reached its WIP limit (%d of %d)", req.To.Name, req.TargetOccupancy, *req.To.WIPLimit))
	}

	if regression {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("moving back from %q to %q", req.From.Name, req.To.Name))
	}

	if req.From.IsFinal {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("leaving final stage %q", req.From.Name))
	}

	result.CanMove = len(result.Blockers) == 0
	if !result.CanMove {
		result.Message = result.Blockers[0]
	}
	return result
}

func incompleteItems(checklist []ChecklistStatus) (required, optional []string) {
	for _, status := range checklist {
		if status.Completed {
			continue
		}
		if status.Item.Required {
			required = append(required, status.Item.Title)
		} else {
			optional = append(optional, status.Item.Title)
		}
	}
	return required, optional
}
