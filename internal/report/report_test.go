package report

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/llm"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/notifier"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/storage/sqlite"
	"github.com/julianstephens/studylit/internal/tasks"
	"github.com/julianstephens/studylit/internal/weekly"
)

var testNow = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

const reportJSON = `{
	"conditionSummary":" Slept on time most days. ",
	"activitySummary":"Two hours of algebra.",
	"analysis":"Mornings worked best.",
	"nextFocus":["Finish chapter 4"," ","Review flashcards"]
}`

type fakeLLM struct {
	json     string
	err      error
	messages []llm.Message
}

func (f *fakeLLM) Chat(context.Context, []llm.Message) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeLLM) ChatJSON(_ context.Context, messages []llm.Message, out any) error {
	f.messages = messages
	if f.err != nil {
		return f.err
	}
	return llm.DecodeJSON(f.json, out)
}

type fakeSender struct {
	configured bool
	err        error
	sent       []notifier.SupporterPayload
}

func (f *fakeSender) Configured() bool { return f.configured }

func (f *fakeSender) Notify(_ context.Context, p notifier.SupporterPayload) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, p)
	return nil
}

func setupStore(t *testing.T) (*sqlite.Store, models.User) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	user := models.User{ID: uuid.New().String(), Email: "ana@example.com", PasswordHash: "hash", DisplayName: "Ana", CreatedAt: testNow}
	if err := store.AddUser(context.Background(), user); err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}

	ctx := context.Background()
	due := time.Date(2024, 1, 9, 18, 0, 0, 0, time.UTC)
	done := tasks.New(user.ID, "Algebra", testNow.Add(-48*time.Hour))
	done.Due = &due
	done.WorkedSeconds = 7200
	done.State = models.Done{}
	open := tasks.New(user.ID, "Essay", testNow.Add(-time.Hour))
	for _, task := range []models.Task{done, open} {
		if err := store.AddTask(ctx, task); err != nil {
			t.Fatalf("AddTask() error = %v", err)
		}
	}
	logs := []models.CredoLog{{Item: "sleep_on_time", Done: true}, {Item: "reflect", Done: true}}
	if err := store.ReplaceCredoDay(ctx, user.ID, "2024-01-09", logs, testNow); err != nil {
		t.Fatalf("ReplaceCredoDay() error = %v", err)
	}
	return store, user
}

func newService(store Store, client llm.Client, sender Sender, now time.Time) *Service {
	return NewService(store, client, sender).WithClock(func() time.Time { return now })
}

func TestWeek(t *testing.T) {
	store, user := setupStore(t)

	week, err := newService(store, nil, nil, testNow).Week(context.Background(), user.ID, testNow)
	if err != nil {
		t.Fatalf("Week() error = %v", err)
	}
	if week.Start != "2024-01-08" || week.End != "2024-01-14" {
		t.Errorf("window = %s..%s", week.Start, week.End)
	}
	if week.Tasks.TotalSeconds != 7200 {
		t.Errorf("TotalSeconds = %d, want 7200", week.Tasks.TotalSeconds)
	}
	if week.Tasks.Daily[1].Seconds != 7200 {
		t.Errorf("Tuesday seconds = %d, want 7200", week.Tasks.Daily[1].Seconds)
	}
	if week.Tasks.StatusCounts.Done != 1 || week.Tasks.StatusCounts.Todo != 1 {
		t.Errorf("StatusCounts = %+v", week.Tasks.StatusCounts)
	}
	if week.Credo.PracticedRate != 18 {
		t.Errorf("PracticedRate = %d, want 18", week.Credo.PracticedRate)
	}
}

func TestGenerate(t *testing.T) {
	store, user := setupStore(t)
	ctx := context.Background()
	client := &fakeLLM{json: reportJSON}

	got, err := newService(store, client, nil, testNow).Generate(ctx, user.ID, testNow)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.WeekStart != "2024-01-08" {
		t.Errorf("WeekStart = %s", got.WeekStart)
	}
	if got.ConditionSummary != "Slept on time most days." {
		t.Errorf("ConditionSummary = %q", got.ConditionSummary)
	}
	if len(got.NextFocus) != 2 || got.NextFocus[1] != "Review flashcards" {
		t.Errorf("NextFocus = %v", got.NextFocus)
	}
	for _, want := range []string{"Ana", "2024-01-08 to 2024-01-14", "Study time: 2h 00m", "Tasks done: 1 of 2", "Credo practiced: 18%", "- Finish chapter 4"} {
		if !strings.Contains(got.SupporterText, want) {
			t.Errorf("SupporterText missing %q:\n%s", want, got.SupporterText)
		}
	}

	var snapshot weekly.TaskSummary
	if err := json.Unmarshal([]byte(got.SummaryJSON), &snapshot); err != nil {
		t.Fatalf("SummaryJSON is not a task summary: %v", err)
	}
	if snapshot.TotalSeconds != 7200 || len(snapshot.Daily) != 7 {
		t.Errorf("snapshot = %+v", snapshot)
	}

	if len(client.messages) != 2 || !strings.Contains(client.messages[1].Content, `"totalSeconds":7200`) {
		t.Errorf("prompt missing week facts: %+v", client.messages)
	}
}

func TestGenerate_UpsertsInPlace(t *testing.T) {
	store, user := setupStore(t)
	ctx := context.Background()

	first, err := newService(store, &fakeLLM{json: reportJSON}, nil, testNow).Generate(ctx, user.ID, testNow)
	if err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}

	later := testNow.Add(2 * time.Hour)
	second, err := newService(store, &fakeLLM{json: `{"conditionSummary":"Tired.","activitySummary":"","analysis":"","nextFocus":[]}`}, nil, later).
		Generate(ctx, user.ID, time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}

	if second.WeekStart != first.WeekStart {
		t.Fatalf("WeekStart changed: %s -> %s", first.WeekStart, second.WeekStart)
	}
	if second.ConditionSummary != "Tired." || len(second.NextFocus) != 0 {
		t.Errorf("report not overwritten: %+v", second)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt = %v, want preserved %v", second.CreatedAt, first.CreatedAt)
	}
	if !second.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", second.UpdatedAt, later)
	}
}

func TestGenerate_Errors(t *testing.T) {
	store, user := setupStore(t)
	upstream := &llm.APIError{StatusCode: 500, Body: "boom"}

	tests := []struct {
		name    string
		client  llm.Client
		wantErr error
	}{
		{name: "no client", client: nil, wantErr: llm.ErrNoAPIKey},
		{name: "upstream failure", client: &fakeLLM{err: upstream}, wantErr: upstream},
		{name: "empty report", client: &fakeLLM{json: `{"conditionSummary":" ","nextFocus":["x"]}`}, wantErr: ErrEmptyReport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService(store, tt.client, nil, testNow).Generate(context.Background(), user.ID, testNow)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Generate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := store.GetWeeklyReport(context.Background(), user.ID, "2024-01-08"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("report stored after failures: %v", err)
	}
}

func TestShare(t *testing.T) {
	store, user := setupStore(t)
	ctx := context.Background()
	sender := &fakeSender{configured: true}
	svc := newService(store, &fakeLLM{json: reportJSON}, sender, testNow)

	if _, err := svc.Share(ctx, user.ID, testNow); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Share() before generate error = %v, want ErrNotFound", err)
	}

	report, err := svc.Generate(ctx, user.ID, testNow)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := svc.Share(ctx, user.ID, testNow); err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d payloads, want 1", len(sender.sent))
	}
	want := notifier.SupporterPayload{Text: report.SupporterText, WeekStart: "2024-01-08", DisplayName: "Ana"}
	if sender.sent[0] != want {
		t.Errorf("payload = %+v, want %+v", sender.sent[0], want)
	}
}

func TestShare_NotConfigured(t *testing.T) {
	store, user := setupStore(t)
	for _, sender := range []Sender{nil, &fakeSender{}} {
		_, err := newService(store, nil, sender, testNow).Share(context.Background(), user.ID, testNow)
		if !errors.Is(err, notifier.ErrNotConfigured) {
			t.Errorf("Share() error = %v, want ErrNotConfigured", err)
		}
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		day     string
		want    time.Time
		wantErr bool
	}{
		{name: "empty uses now", day: "", want: testNow},
		{name: "date", day: "2024-02-29", want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{name: "invalid", day: "29/02/2024", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRef(tt.day, testNow)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRef() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseRef() = %v, want %v", got, tt.want)
			}
		})
	}
}
