package trigger

import "fmt"

// Kind names a notification condition.
type Kind string

const (
	KindSLABreach           Kind = "sla_breach"
	KindStageTimeout        Kind = "stage_timeout"
	KindAppointmentReminder Kind = "appointment_reminder"
)

// ReminderThresholds are the minutes-before-start marks at which an
// appointment reminder fires.
var ReminderThresholds = []int{1440, 120, 30}

// reminderWindowMinutes is the width of the window below each threshold.
const reminderWindowMinutes = 5

// SLABreachKey identifies one overdue-day value of one lead in one stage.
func SLABreachKey(leadID, stageID string, overdueDays int) string {
	return fmt.Sprintf("sla_breach_%s_%s_%d", leadID, stageID, overdueDays)
}

// StageTimeoutKey identifies one remaining-day warning of one lead in one stage.
func StageTimeoutKey(leadID, stageID string, daysRemaining int) string {
	return fmt.Sprintf("stage_timeout_%s_%s_%d", leadID, stageID, daysRemaining)
}

// AppointmentKey identifies one reminder threshold of one appointment.
func AppointmentKey(appointmentID string, thresholdMinutes int) string {
	return fmt.Sprintf("appointment_%s_%d", appointmentID, thresholdMinutes)
}

// dueThreshold returns the threshold whose window (T-5, T] contains
// minutesUntil, if any.
func dueThreshold(minutesUntil int) (int, bool) {
	for _, threshold := range ReminderThresholds {
		if minutesUntil <= threshold && minutesUntil > threshold-reminderWindowMinutes {
			return threshold, true
		}
	}
	return 0, false
}
