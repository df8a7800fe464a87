package audit

import (
	"context"

	"pipeline_backend/internal/events"
	"pipeline_backend/platform/logger"
)

// Appender stores activity entries.
type Appender interface {
	Append(ctx context.Context, entry Entry) error
}

// Subscriber turns domain events into activity log entries.
type Subscriber struct {
	appender Appender
	log      *logger.Logger
}

// NewSubscriber creates a Subscriber.
func NewSubscriber(appender Appender, log *logger.Logger) *Subscriber {
	return &Subscriber{appender: appender, log: log}
}

// RegisterHandlers subscribes to every event that changes a lead or an entry.
func (s *Subscriber) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(s.handle))
	bus.Subscribe(events.LeadMerged{}.EventName(), events.HandlerFunc(s.handle))
	bus.Subscribe(events.LeadInscribed{}.EventName(), events.HandlerFunc(s.handle))
	bus.Subscribe(events.LeadStageChanged{}.EventName(), events.HandlerFunc(s.handle))
	bus.Subscribe(events.NotificationRecorded{}.EventName(), events.HandlerFunc(s.handle))
}

func (s *Subscriber) handle(ctx context.Context, event events.Event) error {
	entry, ok := toEntry(event)
	if !ok {
		return nil
	}
	if err := s.appender.Append(ctx, entry); err != nil {
		s.log.Error("failed to append activity", "event", event.EventName(), "entityId", entry.EntityID, "error", err)
		return err
	}
	return nil
}

func toEntry(event events.Event) (Entry, bool) {
	switch e := event.(type) {
	case events.LeadCreated:
		return Entry{
			EntityType: EntityLead,
			EntityID:   e.LeadID,
			ChangeSet:  map[string]any{"action": "created", "source": e.Source},
			Actor:      e.Actor,
		}, true
	case events.LeadMerged:
		return Entry{
			EntityType: EntityLead,
			EntityID:   e.LeadID,
			ChangeSet: map[string]any{
				"action":    "merged",
				"matchedBy": e.MatchedBy,
				"changes":   e.Changes,
				"warnings":  e.Warnings,
			},
			Actor: e.Actor,
		}, true
	case events.LeadInscribed:
		return Entry{
			EntityType: EntityPipelineEntry,
			EntityID:   e.EntryID,
			ChangeSet: map[string]any{
				"action":     "inscribed",
				"leadId":     e.LeadID,
				"pipelineId": e.PipelineID,
				"stageId":    e.StageID,
			},
			Actor: e.Actor,
		}, true
	case events.LeadStageChanged:
		return Entry{
			EntityType: EntityPipelineEntry,
			EntityID:   e.EntryID,
			ChangeSet: map[string]any{
				"action":   "stage_changed",
				"leadId":   e.LeadID,
				"stageId":  events.FieldChange{Old: e.FromStageID, New: e.ToStageID},
				"warnings": e.Warnings,
			},
			Actor: e.Actor,
		}, true
	case events.NotificationRecorded:
		return Entry{
			EntityType: EntityNotification,
			EntityID:   e.SubjectID,
			ChangeSet:  map[string]any{"action": "recorded", "kind": e.Kind, "dedupKey": e.DedupKey},
			Actor:      "system",
		}, true
	}
	return Entry{}, false
}
