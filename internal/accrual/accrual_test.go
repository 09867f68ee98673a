package accrual

import (
	"testing"
	"time"

	"github.com/julianstephens/studylit/internal/models"
)

func TestEffectiveSeconds(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		task models.Task
		at   time.Time
		want int64
	}{
		{
			name: "running adds live segment",
			task: models.Task{WorkedSeconds: 30, State: models.Running{Since: now.Add(-90 * time.Second)}},
			at:   now,
			want: 120,
		},
		{
			name: "same task observed later",
			task: models.Task{WorkedSeconds: 30, State: models.Running{Since: now.Add(-90 * time.Second)}},
			at:   now.Add(10 * time.Second),
			want: 130,
		},
		{
			name: "future resume timestamp clamps",
			task: models.Task{WorkedSeconds: 30, State: models.Running{Since: now.Add(5 * time.Second)}},
			at:   now,
			want: 30,
		},
		{
			name: "partial seconds floor",
			task: models.Task{WorkedSeconds: 0, State: models.Running{Since: now.Add(-1999 * time.Millisecond)}},
			at:   now,
			want: 1,
		},
		{
			name: "running without timer",
			task: models.Task{WorkedSeconds: 45, State: models.Running{}},
			at:   now,
			want: 45,
		},
		{
			name: "paused uses counter only",
			task: models.Task{WorkedSeconds: 45, State: models.Paused{}},
			at:   now,
			want: 45,
		},
		{
			name: "done uses counter only",
			task: models.Task{WorkedSeconds: 600, State: models.Done{}},
			at:   now,
			want: 600,
		},
		{
			name: "nil state",
			task: models.Task{WorkedSeconds: 5},
			at:   now,
			want: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveSeconds(tt.task, tt.at); got != tt.want {
				t.Errorf("EffectiveSeconds() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFold(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	if got := Fold(30, now.Add(-90*time.Second), now); got != 120 {
		t.Errorf("Fold() = %d, want 120", got)
	}
	if got := Fold(30, now.Add(time.Minute), now); got != 30 {
		t.Errorf("Fold() with future since = %d, want 30", got)
	}
	if got := Fold(-10, time.Time{}, now); got != 0 {
		t.Errorf("Fold() with negative counter = %d, want 0", got)
	}
}
