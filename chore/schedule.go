package chore

import "time"

// =============================================================================
// AVAILABILITY SCHEDULER - When a recurring chore opens up again
// =============================================================================

// NextAvailable computes when a chore may be completed again after the
// given approval anchor. Non-recurring templates have no further
// occurrences and return nil.
//
// Cooldown is measured in whole days; zero means immediately available.
// This is a pure function - nothing schedules timers here. Availability is
// evaluated lazily whenever a child attempts to complete, by comparing the
// current time to the stored value.
//
// A negative cooldown on a recurring template is a configuration error
// rejected at template creation (see ChoreTemplate.Validate), so it is
// not re-checked here.
func NextAvailable(t ChoreTemplate, anchor time.Time) *time.Time {
	if !t.IsRecurring {
		return nil
	}
	at := anchor.AddDate(0, 0, t.CooldownDays)
	return &at
}
