// Package storagetest holds the behaviour every storage.Provider must share.
// Backend packages run it from their own tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage"
)

// Factory returns an initialized, empty store.
type Factory func(t *testing.T) storage.Provider

var base = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

func mustUser(t *testing.T, store storage.Provider, email string) models.User {
	t.Helper()
	u := models.User{ID: uuid.New().String(), Email: email, PasswordHash: "hash", DisplayName: email, CreatedAt: base}
	if err := store.AddUser(context.Background(), u); err != nil {
		t.Fatalf("AddUser(%s) error = %v", email, err)
	}
	return u
}

func newTask(userID, title string, parent *models.Task) models.Task {
	t := models.Task{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		State:     models.Idle{},
		Source:    models.SourceManual,
		CreatedAt: base,
		UpdatedAt: base,
	}
	if parent != nil {
		t.ParentID = &parent.ID
	}
	return t
}

func mustTask(t *testing.T, store storage.Provider, task models.Task) models.Task {
	t.Helper()
	if err := store.AddTask(context.Background(), task); err != nil {
		t.Fatalf("AddTask(%s) error = %v", task.Title, err)
	}
	return task
}

// Run executes the full provider suite.
func Run(t *testing.T, factory Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, factory(t)) })
	t.Run("Tasks", func(t *testing.T) { testTasks(t, factory(t)) })
	t.Run("TaskRange", func(t *testing.T) { testTaskRange(t, factory(t)) })
	t.Run("DeleteTaskCascades", func(t *testing.T) { testDeleteTask(t, factory(t)) })
	t.Run("ChangeTaskStatus", func(t *testing.T) { testChangeTaskStatus(t, factory(t)) })
	t.Run("Credo", func(t *testing.T) { testCredo(t, factory(t)) })
	t.Run("Chat", func(t *testing.T) { testChat(t, factory(t)) })
	t.Run("WeeklyReport", func(t *testing.T) { testWeeklyReport(t, factory(t)) })
	t.Run("Notes", func(t *testing.T) { testNotes(t, factory(t)) })
	t.Run("Maintenance", func(t *testing.T) { testMaintenance(t, factory(t)) })
}

func testUsers(t *testing.T, store storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, store, "Ada@Example.com")

	got, err := store.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.ID != u.ID || got.Email != "ada@example.com" {
		t.Errorf("GetUserByEmail() = %+v, want id %s with lowercased email", got, u.ID)
	}

	dup := models.User{ID: uuid.New().String(), Email: "ada@example.com", PasswordHash: "x", CreatedAt: base}
	if err := store.AddUser(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("AddUser(duplicate) error = %v, want ErrConflict", err)
	}

	if _, err := store.GetUser(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetUser(missing) error = %v, want ErrNotFound", err)
	}

	users, err := store.GetAllUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Errorf("GetAllUsers() = %d users, %v; want 1", len(users), err)
	}
}

func testTasks(t *testing.T, store storage.Provider) {
	ctx := context.Background()
	alice := mustUser(t, store, "alice@example.com")
	bob := mustUser(t, store, "bob@example.com")

	due := base.Add(48 * time.Hour)
	parent := newTask(alice.ID, "Thesis", nil)
	parent.Description = "chapter two"
	parent.Due = &due
	mustTask(t, store, parent)

	got, err := store.GetTask(ctx, alice.ID, parent.ID)
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got.Title != "Thesis" || got.Description != "chapter two" || got.Due == nil || !got.Due.Equal(due) {
		t.Errorf("GetTask() = %+v", got)
	}
	if got.Status() != models.StatusTodo {
		t.Errorf("GetTask() status = %v, want todo", got.Status())
	}

	if _, err := store.GetTask(ctx, bob.ID, parent.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetTask(other user) error = %v, want ErrNotFound", err)
	}

	child := mustTask(t, store, newTask(alice.ID, "Outline", &parent))
	children, err := store.GetChildTasks(ctx, alice.ID, parent.ID)
	if err != nil || len(children) != 1 || children[0].ID != child.ID {
		t.Errorf("GetChildTasks() = %+v, %v", children, err)
	}

	foreign := newTask(bob.ID, "Sneaky", &parent)
	if err := store.AddTask(ctx, foreign); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("AddTask(under foreign parent) error = %v, want ErrNotFound", err)
	}

	started := base.Add(time.Hour)
	got.Title = "Thesis draft"
	got.State = models.Running{Since: started}
	got.WorkedSeconds = 42
	got.UpdatedAt = started
	if err := store.UpdateTask(ctx, got); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	updated, err := store.GetTask(ctx, alice.ID, parent.ID)
	if err != nil {
		t.Fatalf("GetTask() after update error = %v", err)
	}
	if updated.Title != "Thesis draft" || updated.WorkedSeconds != 42 {
		t.Errorf("updated task = %+v", updated)
	}
	if since := updated.LastStartedAt(); since == nil || !since.Equal(started) {
		t.Errorf("LastStartedAt() = %v, want %v", since, started)
	}

	// The stored parent survives an update, so writes cannot close a cycle.
	updated.ParentID = &child.ID
	if err := store.UpdateTask(ctx, updated); err != nil {
		t.Fatalf("UpdateTask(reparent) error = %v", err)
	}
	if moved, err := store.GetTask(ctx, alice.ID, parent.ID); err != nil || moved.HasParent() {
		t.Errorf("GetTask() after reparent = %+v, %v, want root", moved, err)
	}

	ghost := newTask(alice.ID, "Ghost", nil)
	if err := store.UpdateTask(ctx, ghost); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateTask(missing) error = %v, want ErrNotFound", err)
	}
}

func testTaskRange(t *testing.T, store storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, store, "range@example.com")
	from := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 0, 7)

	inDue := newTask(u.ID, "due inside", nil)
	d := from.Add(30 * time.Hour)
	inDue.Due = &d
	inDue.CreatedAt = from.AddDate(0, 0, -30)

	inCreated := newTask(u.ID, "created inside", nil)
	inCreated.CreatedAt = until.Add(-time.Second)

	outside := newTask(u.ID, "outside", nil)
	late := until
	outside.Due = &late
	outside.CreatedAt = from.AddDate(0, 0, -1)

	for _, task := range []models.Task{inDue, inCreated, outside} {
		mustTask(t, store, task)
	}

	list, err := store.GetTasksInRange(ctx, u.ID, from, until)
	if err != nil {
		t.Fatalf("GetTasksInRange() error = %v", err)
	}
	got := map[string]bool{}
	for _, task := range list {
		got[task.Title] = true
	}
	if len(list) != 2 || !got["due inside"] || !got["created inside"] {
		t.Errorf("GetTasksInRange() = %v, want due inside + created inside", got)
	}
}

func testDeleteTask(t *testing.T, store storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, store, "delete@example.com")
	root := mustTask(t, store, newTask(u.ID, "root", nil))
	child := mustTask(t, store, newTask(u.ID, "child", &root))
	mustTask(t, store, newTask(u.ID, "grandchild", &child))
	keep := mustTask(t, store, newTask(u.ID, "keep", nil))

	if err := store.DeleteTask(ctx, u.ID, root.ID); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	all, err := store.GetAllTasks(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetAllTasks() error = %v", err)
	}
	if len(all) != 1 || all[0].ID != keep.ID {
		t.Errorf("remaining tasks = %+v, want only %s", all, keep.ID)
	}

	if err := store.DeleteTask(ctx, u.ID, root.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteTask(again) error = %v, want ErrNotFound", err)
	}
}

func testChangeTaskStatus(t *testing.T, store storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, store, "cascade@example.com")
	parent := mustTask(t, store, newTask(u.ID, "parent", nil))
	c1 := newTask(u.ID, "c1", &parent)
	c1.State = models.Done{}
	mustTask(t, store, c1)
	c2 := mustTask(t, store, newTask(u.ID, "c2", &parent))

	now := base.Add(time.Hour)

	change, err := store.ChangeTaskStatus(ctx, u.ID, c2.ID, models.StatusInProgress, now)
	if err != nil {
		t.Fatalf("ChangeTaskStatus(start) error = %v", err)
	}
	if change.Task.Status() != models.StatusInProgress || change.Parent == nil || change.Parent.Status() != models.StatusInProgress {
		t.Fatalf("start change = %+v", change)
	}

	change, err = store.ChangeTaskStatus(ctx, u.ID, c2.ID, models.StatusDone, now.Add(90*time.Second))
	if err != nil {
		t.Fatalf("ChangeTaskStatus(done) error = %v", err)
	}
	if change.Task.WorkedSeconds != 90 {
		t.Errorf("child WorkedSeconds = %d, want 90", change.Task.WorkedSeconds)
	}
	storedParent, err := store.GetTask(ctx, u.ID, parent.ID)
	if err != nil {
		t.Fatalf("GetTask(parent) error = %v", err)
	}
	if storedParent.Status() != models.StatusDone {
		t.Errorf("parent status = %v, want done", storedParent.Status())
	}

	if _, err := store.ChangeTaskStatus(ctx, u.ID, c2.ID, models.StatusPaused, now.Add(2*time.Minute)); err != nil {
		t.Fatalf("ChangeTaskStatus(pause) error = %v", err)
	}
	storedParent, _ = store.GetTask(ctx, u.ID, parent.ID)
	if storedParent.Status() != models.StatusInProgress {
		t.Errorf("parent status after pause = %v, want in_progress", storedParent.Status())
	}

	// An invalid target status must leave the child untouched.
	if _, err := store.ChangeTaskStatus(ctx, u.ID, c2.ID, "archived", now); err == nil {
		t.Error("ChangeTaskStatus(invalid) expected error")
	}
	storedChild, _ := store.GetTask(ctx, u.ID, c2.ID)
	if storedChild.Status() != models.StatusPaused {
		t.Errorf("child status after failed change = %v, want paused", storedChild.Status())
	}

	lone := mustTask(t, store, newTask(u.ID, "lone", nil))
	change, err = store.ChangeTaskStatus(ctx, u.ID, lone.ID, models.StatusDone, now)
	if err != nil || change.Parent != nil {
		t.Errorf("ChangeTaskStatus(root) = %+v, %v; want no parent", change, err)
	}

	if _, err := store.ChangeTaskStatus(ctx, u.ID, "missing", models.StatusDone, now); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ChangeTaskStatus(missing) error = %v, want ErrNotFound", err)
	}
}

func testCredo(t *testing.T, store storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, store, "credo@example.com")

	first := []models.CredoLog{
		{Item: "reflect", Done: true, Note: "good day"},
		{Item: "move_body", Done: true},
	}
	if err := store.ReplaceCredoDay(ctx, u.ID, "2024-01-10", first, base); err != nil {
		t.Fatalf("ReplaceCredoDay() error = %v", err)
	}
	if err := store.ReplaceCredoDay(ctx, u.ID, "2024-01-11", []models.CredoLog{{Item: "plan_first", Done: true}}, base); err != nil {
		t.Fatalf("ReplaceCredoDay(next day) error = %v", err)
	}

	second := []models.CredoLog{{Item: "active_recall", Done: false, Note: "skipped"}}
	if err := store.ReplaceCredoDay(ctx, u.ID, "2024-01-10", second, base.Add(time.Hour)); err != nil {
		t.Fatalf("ReplaceCredoDay(replace) error = %v", err)
	}

	day, err := store.GetCredoLogs(ctx, u.ID, "2024-01-10", "2024-01-10")
	if err != nil {
		t.Fatalf("GetCredoLogs() error = %v", err)
	}
	if len(day) != 1 || day[0].Item != "active_recall" || day[0].Done || day[0].Note != "skipped" {
		t.Errorf("logs after replace = %+v, want only active_recall", day)
	}
	if len(day) == 1 && !day[0].CreatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("CreatedAt = %v, want the passed clock %v", day[0].CreatedAt, base.Add(time.Hour))
	}

	kept := base.Add(-24 * time.Hour)
	if err := store.ReplaceCredoDay(ctx, u.ID, "2024-02-01", []models.CredoLog{{Item: "reflect", Done: true, CreatedAt: kept}}, base); err != nil {
		t.Fatalf("ReplaceCredoDay(with created time) error = %v", err)
	}
	if logs, err := store.GetCredoLogs(ctx, u.ID, "2024-02-01", "2024-02-01"); err != nil || len(logs) != 1 || !logs[0].CreatedAt.Equal(kept) {
		t.Errorf("GetCredoLogs() = %+v, %v; want CreatedAt %v kept", logs, err, kept)
	}

	week, err := store.GetCredoLogs(ctx, u.ID, "2024-01-08", "2024-01-14")
	if err != nil || len(week) != 2 {
		t.Errorf("GetCredoLogs(week) = %d logs, %v; want 2", len(week), err)
	}

	bad := []models.CredoLog{{Item: "juggling", Done: true}}
	if err := store.ReplaceCredoDay(ctx, u.ID, "2024-01-10", bad, base); err == nil {
		t.Error("ReplaceCredoDay(unknown item) expected error")
	}
	dup := []models.CredoLog{{Item: "reflect"}, {Item: "reflect"}}
	if err := store.ReplaceCredoDay(ctx, u.ID, "2024-01-10", dup, base); err == nil {
		t.Error("ReplaceCredoDay(duplicate item) expected error")
	}
	day, _ = store.GetCredoLogs(ctx, u.ID, "2024-01-10", "2024-01-10")
	if len(day) != 1 {
		t.Errorf("rejected replace changed stored logs: %+v", day)
	}

	if err := store.ReplaceCredoDay(ctx, u.ID, "2024-01-11", nil, base); err != nil {
		t.Fatalf("ReplaceCredoDay(clear) error = %v", err)
	}
	cleared, _ := store.GetCredoLogs(ctx, u.ID, "2024-01-11", "2024-01-11")
	if len(cleared) != 0 {
		t.Errorf("logs after clearing = %+v, want none", cleared)
	}
}

func chatPair(i int, at time.Time) (models.ChatMessage, models.ChatMessage) {
	q := models.ChatMessage{ID: uuid.New().String(), Role: models.RoleUser, Content: fmt.Sprintf("q%d", i), CreatedAt: at}
	a := models.ChatMessage{ID: uuid.New().String(), Role: models.RoleAssistant, Content: fmt.Sprintf("a%d", i), CreatedAt: at}
	return q, a
}

func testChat(t *testing.T, store storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, store, "chat@example.com")
	other := mustUser(t, store, "other@example.com")

	for i := 1; i <= 4; i++ {
		q, a := chatPair(i, base.Add(time.Duration(i)*time.Minute))
		if err := store.AppendChatPair(ctx, u.ID, q, a, 6); err != nil {
			t.Fatalf("AppendChatPair(%d) error = %v", i, err)
		}
	}
	q, a := chatPair(0, base)
	if err := store.AppendChatPair(ctx, other.ID, q, a, 6); err != nil {
		t.Fatalf("AppendChatPair(other) error = %v", err)
	}

	history, err := store.GetChatHistory(ctx, u.ID, 0)
	if err != nil {
		t.Fatalf("GetChatHistory() error = %v", err)
	}
	var contents []string
	for _, m := range history {
		contents = append(contents, m.Content)
	}
	want := []string{"q2", "a2", "q3", "a3", "q4", "a4"}
	if fmt.Sprint(contents) != fmt.Sprint(want) {
		t.Errorf("history = %v, want %v", contents, want)
	}

	recent, err := store.GetChatHistory(ctx, u.ID, 2)
	if err != nil || len(recent) != 2 || recent[0].Content != "q4" || recent[1].Content != "a4" {
		t.Errorf("GetChatHistory(limit 2) = %+v, %v", recent, err)
	}

	if err := store.AppendChatPair(ctx, u.ID, a, q, 6); err == nil {
		t.Error("AppendChatPair(reversed roles) expected error")
	}

	if err := store.DeleteChatHistory(ctx, u.ID); err != nil {
		t.Fatalf("DeleteChatHistory() error = %v", err)
	}
	if history, _ := store.GetChatHistory(ctx, u.ID, 0); len(history) != 0 {
		t.Errorf("history after delete = %d messages", len(history))
	}
	if history, _ := store.GetChatHistory(ctx, other.ID, 0); len(history) != 2 {
		t.Errorf("other user's history = %d messages, want 2", len(history))
	}
}

func testWeeklyReport(t *testing.T, store storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, store, "report@example.com")

	if _, err := store.GetWeeklyReport(ctx, u.ID, "2024-01-08"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetWeeklyReport(missing) error = %v, want ErrNotFound", err)
	}

	r := models.WeeklyReport{
		UserID:        u.ID,
		WeekStart:     "2024-01-08",
		Analysis:      "first",
		NextFocus:     []string{"sleep"},
		SupporterText: "v1",
		CreatedAt:     base,
		UpdatedAt:     base,
	}
	if err := store.SaveWeeklyReport(ctx, r); err != nil {
		t.Fatalf("SaveWeeklyReport() error = %v", err)
	}

	later := base.Add(time.Hour)
	r.Analysis = "second"
	r.NextFocus = []string{"review", "rest"}
	r.SupporterText = "v2"
	r.CreatedAt = later
	r.UpdatedAt = later
	if err := store.SaveWeeklyReport(ctx, r); err != nil {
		t.Fatalf("SaveWeeklyReport(regenerate) error = %v", err)
	}

	got, err := store.GetWeeklyReport(ctx, u.ID, "2024-01-08")
	if err != nil {
		t.Fatalf("GetWeeklyReport() error = %v", err)
	}
	if got.Analysis != "second" || got.SupporterText != "v2" || fmt.Sprint(got.NextFocus) != "[review rest]" {
		t.Errorf("GetWeeklyReport() = %+v, want regenerated fields", got)
	}
	if !got.CreatedAt.Equal(base) || !got.UpdatedAt.Equal(later) {
		t.Errorf("timestamps = created %v updated %v; want created kept", got.CreatedAt, got.UpdatedAt)
	}
}

func testNotes(t *testing.T, store storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, store, "notes@example.com")

	n := models.Note{ID: uuid.New().String(), UserID: u.ID, Title: "Cells", Body: "mitosis", Canvas: `{"strokes":[]}`, CreatedAt: base, UpdatedAt: base}
	if err := store.AddNote(ctx, n); err != nil {
		t.Fatalf("AddNote() error = %v", err)
	}

	n.Body = "meiosis"
	n.UpdatedAt = base.Add(time.Minute)
	if err := store.UpdateNote(ctx, n); err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	got, err := store.GetNote(ctx, u.ID, n.ID)
	if err != nil || got.Body != "meiosis" || got.Canvas != `{"strokes":[]}` {
		t.Errorf("GetNote() = %+v, %v", got, err)
	}

	all, err := store.GetAllNotes(ctx, u.ID)
	if err != nil || len(all) != 1 {
		t.Errorf("GetAllNotes() = %d, %v", len(all), err)
	}

	if err := store.DeleteNote(ctx, "someone-else", n.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteNote(other user) error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteNote(ctx, u.ID, n.ID); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	if _, err := store.GetNote(ctx, u.ID, n.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetNote(deleted) error = %v, want ErrNotFound", err)
	}
}

func testMaintenance(t *testing.T, store storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, store, "ada@example.com")
	parent := mustTask(t, store, newTask(u.ID, "Parent", nil))
	sub := mustTask(t, store, newTask(u.ID, "Child", &parent))

	if _, err := store.ChangeTaskStatus(ctx, u.ID, sub.ID, models.StatusInProgress, base); err != nil {
		t.Fatalf("ChangeTaskStatus() error = %v", err)
	}

	rows, err := store.GetTaskRows(ctx)
	if err != nil {
		t.Fatalf("GetTaskRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("GetTaskRows() = %d rows, want 2", len(rows))
	}
	for _, r := range rows {
		if r.ID != sub.ID {
			continue
		}
		if r.ParentUserID == nil || *r.ParentUserID != u.ID {
			t.Errorf("ParentUserID = %v, want %s", r.ParentUserID, u.ID)
		}
		if r.Status != string(models.StatusInProgress) || r.LastStartedAt == nil {
			t.Errorf("row = %+v, want running with timer", r)
		}
	}

	// A live timer is never cleared.
	if err := store.ClearTaskTimer(ctx, sub.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ClearTaskTimer(running) error = %v, want ErrNotFound", err)
	}
}
