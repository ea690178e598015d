package chore_test

import (
	"testing"
	"time"

	"github.com/warp/allowance-engine/chore"
)

func TestNextAvailable_NonRecurring(t *testing.T) {
	template := chore.ChoreTemplate{IsRecurring: false, CooldownDays: 7}
	if got := chore.NextAvailable(template, time.Now()); got != nil {
		t.Errorf("non-recurring template should have no next occurrence, got %v", got)
	}
}

func TestNextAvailable_Recurring(t *testing.T) {
	anchor := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		cooldown int
		want     time.Time
	}{
		{"seven day cooldown", 7, anchor.AddDate(0, 0, 7)},
		{"one day cooldown", 1, anchor.AddDate(0, 0, 1)},
		{"zero cooldown means immediately available", 0, anchor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template := chore.ChoreTemplate{IsRecurring: true, CooldownDays: tt.cooldown}
			got := chore.NextAvailable(template, anchor)
			if got == nil {
				t.Fatal("expected a next-available time")
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, *got)
			}
		})
	}
}
