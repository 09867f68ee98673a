package models

import (
	"testing"
	"time"
)

func TestStateFromColumns(t *testing.T) {
	since := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		status    TaskStatus
		started   *time.Time
		want      TaskState
		wantSince *time.Time
		wantErr   bool
	}{
		{name: "todo", status: StatusTodo, want: Idle{}},
		{name: "running with timer", status: StatusInProgress, started: &since, want: Running{Since: since}, wantSince: &since},
		{name: "running without timer", status: StatusInProgress, want: Running{}},
		{name: "paused drops stale timestamp", status: StatusPaused, started: &since, want: Paused{}},
		{name: "done drops stale timestamp", status: StatusDone, started: &since, want: Done{}},
		{name: "unknown status", status: "blocked", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StateFromColumns(tt.status, tt.started)
			if (err != nil) != tt.wantErr {
				t.Fatalf("StateFromColumns() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("StateFromColumns() = %#v, want %#v", got, tt.want)
			}

			status, gotSince := StateColumns(got)
			if status != tt.status {
				t.Errorf("StateColumns() status = %v, want %v", status, tt.status)
			}
			if (gotSince == nil) != (tt.wantSince == nil) {
				t.Fatalf("StateColumns() since = %v, want %v", gotSince, tt.wantSince)
			}
			if gotSince != nil && !gotSince.Equal(*tt.wantSince) {
				t.Errorf("StateColumns() since = %v, want %v", gotSince, tt.wantSince)
			}
		})
	}
}

func TestTask_Validate(t *testing.T) {
	self := "t1"

	tests := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{name: "valid", task: Task{ID: "t1", UserID: "u1", Title: "Read chapter 3"}},
		{name: "blank title", task: Task{ID: "t1", UserID: "u1", Title: "   "}, wantErr: true},
		{name: "missing owner", task: Task{ID: "t1", Title: "Read"}, wantErr: true},
		{name: "self parent", task: Task{ID: "t1", UserID: "u1", Title: "Read", ParentID: &self}, wantErr: true},
		{name: "negative seconds", task: Task{ID: "t1", UserID: "u1", Title: "Read", WorkedSeconds: -1}, wantErr: true},
		{name: "bad source", task: Task{ID: "t1", UserID: "u1", Title: "Read", Source: "import"}, wantErr: true},
		{name: "ai plan source", task: Task{ID: "t1", UserID: "u1", Title: "Read", Source: SourceAIPlan}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTask_StatusDefaultsToTodo(t *testing.T) {
	var task Task
	if got := task.Status(); got != StatusTodo {
		t.Errorf("Status() = %v, want %v", got, StatusTodo)
	}
	if task.LastStartedAt() != nil {
		t.Errorf("LastStartedAt() = %v, want nil", task.LastStartedAt())
	}
}

func TestCredoItems(t *testing.T) {
	if len(CredoItems) != 11 {
		t.Fatalf("len(CredoItems) = %d, want 11", len(CredoItems))
	}
	seen := make(map[string]bool)
	for i, item := range CredoItems {
		if seen[item.ID] {
			t.Errorf("duplicate credo item %q", item.ID)
		}
		seen[item.ID] = true
		if CredoOrder(item.ID) != i {
			t.Errorf("CredoOrder(%q) = %d, want %d", item.ID, CredoOrder(item.ID), i)
		}
	}
	if CredoOrder("nope") != -1 {
		t.Errorf("CredoOrder(unknown) = %d, want -1", CredoOrder("nope"))
	}
}

func TestCredoLog_Validate(t *testing.T) {
	tests := []struct {
		name    string
		log     CredoLog
		wantErr bool
	}{
		{name: "valid", log: CredoLog{Item: "reflect", Day: "2024-01-10", Done: true}},
		{name: "unknown item", log: CredoLog{Item: "juggle", Day: "2024-01-10"}, wantErr: true},
		{name: "bad date", log: CredoLog{Item: "reflect", Day: "10/01/2024"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.log.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
