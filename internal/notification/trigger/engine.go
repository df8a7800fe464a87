// Package trigger periodically re-evaluates SLA and appointment conditions and
// records at most one notification per condition instance.
package trigger

import (
	"context"
	"time"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/pipelines/domain"
	"pipeline_backend/internal/pipelines/sla"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultInterval is the time between scans.
	DefaultInterval = 5 * time.Minute
	// DefaultInitialDelay is the wait before the first scan after Start.
	DefaultInitialDelay = 10 * time.Second

	appointmentHorizon = 24 * time.Hour
)

// EntrySource lists the active entries to check and stores refreshed health tags.
type EntrySource interface {
	ListActiveWithSLA(ctx context.Context) ([]domain.EntryWithStage, error)
	UpdateHealth(ctx context.Context, entryID uuid.UUID, health domain.HealthTier) error
}

// Appointment is an upcoming appointment to remind about.
type Appointment struct {
	ID        uuid.UUID
	LeadID    *uuid.UUID
	Title     string
	StartTime time.Time
}

// AppointmentSource lists appointments starting in (from, to].
type AppointmentSource interface {
	ListUpcoming(ctx context.Context, from, to time.Time) ([]Appointment, error)
}

// Recorder persists a notification. Delivery channels are someone else's concern.
type Recorder interface {
	Record(ctx context.Context, subjectID uuid.UUID, kind Kind, dedupKey string, payload map[string]any) error
}

// Deps are the collaborators of an Engine.
type Deps struct {
	State        *State
	Entries      EntrySource
	Appointments AppointmentSource
	Recorder     Recorder
	Calculator   sla.Calculator
	QuietHours   QuietHours
	Interval     time.Duration
	InitialDelay time.Duration
	Bus          events.Bus
	Log          *logger.Logger
}

// Report summarizes one scan.
type Report struct {
	EntriesChecked      int  `json:"entriesChecked"`
	AppointmentsChecked int  `json:"appointmentsChecked"`
	HealthUpdates       int  `json:"healthUpdates"`
	Fired               int  `json:"fired"`
	Duplicates          int  `json:"duplicates"`
	Suppressed          int  `json:"suppressed"`
	Failed              int  `json:"failed"`
	Quiet               bool `json:"quiet"`
}

func (r *Report) add(other Report) {
	r.EntriesChecked += other.EntriesChecked
	r.AppointmentsChecked += other.AppointmentsChecked
	r.HealthUpdates += other.HealthUpdates
	r.Fired += other.Fired
	r.Duplicates += other.Duplicates
	r.Suppressed += other.Suppressed
	r.Failed += other.Failed
}

type outcome int

const (
	outcomeFired outcome = iota
	outcomeDuplicate
	outcomeSuppressed
	outcomeFailed
)

func (r *Report) count(o outcome) {
	switch o {
	case outcomeFired:
		r.Fired++
	case outcomeDuplicate:
		r.Duplicates++
	case outcomeSuppressed:
		r.Suppressed++
	case outcomeFailed:
		r.Failed++
	}
}

// Engine runs the SLA and appointment scans.
type Engine struct {
	state        *State
	entries      EntrySource
	appointments AppointmentSource
	recorder     Recorder
	calc         sla.Calculator
	quiet        QuietHours
	interval     time.Duration
	initialDelay time.Duration
	bus          events.Bus
	log          *logger.Logger
	now          func() time.Time
}

// New creates an Engine. A nil State gets a private in-memory one.
func New(deps Deps) *Engine {
	state := deps.State
	if state == nil {
		state = NewState(nil)
	}
	interval := deps.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	initialDelay := deps.InitialDelay
	if initialDelay <= 0 {
		initialDelay = DefaultInitialDelay
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		state:        state,
		entries:      deps.Entries,
		appointments: deps.Appointments,
		recorder:     deps.Recorder,
		calc:         deps.Calculator,
		quiet:        deps.QuietHours,
		interval:     interval,
		initialDelay: initialDelay,
		bus:          deps.Bus,
		log:          log,
		now:          time.Now,
	}
}

// Start launches the periodic loop: one scan after the initial delay, then one
// per interval until ctx is cancelled or Stop is called. Only one loop may run
// per State; further calls return ErrAlreadyRunning.
func (e *Engine) Start(ctx context.Context) error {
	loopCtx, done, err := e.state.acquire(ctx)
	if err != nil {
		return err
	}
	go e.loop(loopCtx, done)
	e.log.Info("notification trigger engine started", "interval", e.interval.String(), "initialDelay", e.initialDelay.String())
	return nil
}

// Stop cancels the loop and waits for the current scan to finish.
func (e *Engine) Stop() {
	e.state.stop()
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer e.state.release(done)

	initial := time.NewTimer(e.initialDelay)
	defer initial.Stop()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("notification trigger engine stopped")
			return
		case <-initial.C:
			e.runLogged(ctx)
		case <-ticker.C:
			e.runLogged(ctx)
		}
	}
}

func (e *Engine) runLogged(ctx context.Context) {
	if _, err := e.RunOnce(ctx); err != nil {
		e.log.Error("notification scan failed", "error", err)
	}
}

// RunOnce performs one SLA scan and one appointment scan concurrently. During
// quiet hours both scans still run and mark their keys, but nothing is recorded.
func (e *Engine) RunOnce(ctx context.Context) (Report, error) {
	now := e.now()
	quiet := e.quiet.Contains(now)

	var slaReport, appointmentReport Report
	var g errgroup.Group
	g.Go(func() error {
		var err error
		slaReport, err = e.scanSLA(ctx, now, quiet)
		return err
	})
	g.Go(func() error {
		var err error
		appointmentReport, err = e.scanAppointments(ctx, now, quiet)
		return err
	})
	err := g.Wait()

	report := Report{Quiet: quiet}
	report.add(slaReport)
	report.add(appointmentReport)

	e.log.Info("notification scan complete",
		"entries", report.EntriesChecked,
		"appointments", report.AppointmentsChecked,
		"fired", report.Fired,
		"duplicates", report.Duplicates,
		"suppressed", report.Suppressed,
		"failed", report.Failed,
		"quiet", quiet,
	)
	return report, err
}

func (e *Engine) scanSLA(ctx context.Context, now time.Time, quiet bool) (Report, error) {
	var report Report
	if e.entries == nil {
		return report, nil
	}

	items, err := e.entries.ListActiveWithSLA(ctx)
	if err != nil {
		return report, err
	}

	for _, item := range items {
		report.EntriesChecked++
		timing := e.calc.Compute(item.Entry.StageEnteredAt, now, item.Stage)

		if timing.Tier != item.Entry.Health {
			if err := e.entries.UpdateHealth(ctx, item.Entry.ID, timing.Tier); err != nil {
				e.log.Warn("failed to refresh entry health", "entryId", item.Entry.ID, "error", err)
			} else {
				report.HealthUpdates++
			}
		}

		leadID, stageID := item.Entry.LeadID.String(), item.Stage.ID.String()
		payload := map[string]any{
			"leadId":     leadID,
			"leadName":   item.LeadName,
			"entryId":    item.Entry.ID.String(),
			"pipelineId": item.Entry.PipelineID.String(),
			"stageId":    stageID,
			"stageName":  item.Stage.Name,
		}

		switch {
		case timing.IsOverdue():
			payload["overdueDays"] = *timing.OverdueDays
			key := SLABreachKey(leadID, stageID, *timing.OverdueDays)
			report.count(e.fire(ctx, key, item.Entry.LeadID, KindSLABreach, payload, quiet))
		case timing.DaysRemaining != nil && (*timing.DaysRemaining == 0 || *timing.DaysRemaining == 1):
			payload["daysRemaining"] = *timing.DaysRemaining
			key := StageTimeoutKey(leadID, stageID, *timing.DaysRemaining)
			report.count(e.fire(ctx, key, item.Entry.LeadID, KindStageTimeout, payload, quiet))
		}
	}
	return report, nil
}

func (e *Engine) scanAppointments(ctx context.Context, now time.Time, quiet bool) (Report, error) {
	var report Report
	if e.appointments == nil {
		return report, nil
	}

	appointments, err := e.appointments.ListUpcoming(ctx, now, now.Add(appointmentHorizon))
	if err != nil {
		return report, err
	}

	for _, appt := range appointments {
		report.AppointmentsChecked++
		minutesUntil := int(appt.StartTime.Sub(now) / time.Minute)
		threshold, ok := dueThreshold(minutesUntil)
		if !ok {
			continue
		}

		subjectID := appt.ID
		if appt.LeadID != nil {
			subjectID = *appt.LeadID
		}
		payload := map[string]any{
			"appointmentId":    appt.ID.String(),
			"title":            appt.Title,
			"startTime":        appt.StartTime.UTC().Format(time.RFC3339),
			"minutesUntil":     minutesUntil,
			"thresholdMinutes": threshold,
		}
		key := AppointmentKey(appt.ID.String(), threshold)
		report.count(e.fire(ctx, key, subjectID, KindAppointmentReminder, payload, quiet))
	}
	return report, nil
}

// fire records a notification once per key. The key is marked after the
// delivery attempt whether or not it succeeded, so failures are not retried.
func (e *Engine) fire(ctx context.Context, key string, subjectID uuid.UUID, kind Kind, payload map[string]any, quiet bool) outcome {
	ledger := e.state.Ledger()

	seen, err := ledger.Seen(ctx, key)
	if err != nil {
		e.log.Warn("dedup ledger unavailable", "key", key, "error", err)
		return outcomeFailed
	}
	if seen {
		return outcomeDuplicate
	}

	if quiet {
		if err := ledger.Mark(ctx, key); err != nil {
			e.log.Warn("failed to mark dedup key", "key", key, "error", err)
		}
		return outcomeSuppressed
	}

	recordErr := e.recorder.Record(ctx, subjectID, kind, key, payload)
	if err := ledger.Mark(ctx, key); err != nil {
		e.log.Warn("failed to mark dedup key", "key", key, "error", err)
	}
	if recordErr != nil {
		e.log.Error("failed to record notification", "key", key, "kind", string(kind), "error", recordErr)
		return outcomeFailed
	}

	if e.bus != nil {
		e.bus.Publish(ctx, events.NotificationRecorded{
			BaseEvent: events.NewBaseEvent(),
			SubjectID: subjectID,
			Kind:      string(kind),
			DedupKey:  key,
		})
	}
	return outcomeFired
}
