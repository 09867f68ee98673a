package reports

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/studylit/internal/cli/clitest"
	"github.com/julianstephens/studylit/internal/llm"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/notifier"
	"github.com/julianstephens/studylit/internal/tasks"
)

const reportReply = `{"conditionSummary":"Slept on time most nights.","activitySummary":"Studied 25 minutes.","analysis":"Short sessions helped.","nextFocus":["Two recall sessions"]}`

func seedWeek(t *testing.T, f *clitest.Fixture, user models.User) {
	t.Helper()
	ctx := context.Background()
	task := tasks.New(user.ID, "Flashcards", f.Clock.T)
	if err := f.Store.AddTask(ctx, task); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Store.ChangeTaskStatus(ctx, user.ID, task.ID, models.StatusInProgress, f.Clock.T); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Store.ChangeTaskStatus(ctx, user.ID, task.ID, models.StatusDone, f.Clock.T.Add(25*time.Minute)); err != nil {
		t.Fatal(err)
	}
}

func TestWeekCmd(t *testing.T) {
	f := clitest.New(t)
	user := f.AddUser(t, "ana@example.com")
	seedWeek(t, f, user)

	if err := (&WeekCmd{}).Run(f.Ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	out := f.Output()
	if !strings.Contains(out, "Week 2024-01-08 to 2024-01-14") || !strings.Contains(out, "25m 00s") {
		t.Errorf("week output:\n%s", out)
	}

	if err := (&WeekCmd{Date: "2024-01-03", JSON: true}).Run(f.Ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	var w struct {
		WeekStart string `json:"weekStart"`
		Summary   struct {
			TotalSeconds int64 `json:"totalSeconds"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(f.Out.Bytes(), &w); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if w.WeekStart != "2024-01-01" || w.Summary.TotalSeconds != 0 {
		t.Errorf("previous week = %+v", w)
	}

	if err := (&WeekCmd{Date: "01/03/2024"}).Run(f.Ctx); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestReportGenerateCmd_NoLLM(t *testing.T) {
	f := clitest.New(t)
	f.AddUser(t, "ana@example.com")

	err := (&ReportGenerateCmd{}).Run(f.Ctx)
	if !errors.Is(err, llm.ErrNoAPIKey) {
		t.Fatalf("error = %v, want ErrNoAPIKey", err)
	}
	if !strings.Contains(err.Error(), "keyring set llm-api-key") {
		t.Errorf("error %q should explain how to configure a key", err)
	}
}

func TestReportGenerateAndShow(t *testing.T) {
	f := clitest.New(t)
	user := f.AddUser(t, "ana@example.com")
	seedWeek(t, f, user)
	calls := f.FakeLLM(t, reportReply)

	if err := (&ReportShowCmd{}).Run(f.Ctx); err == nil || !strings.Contains(err.Error(), "report generate") {
		t.Fatalf("show before generate error = %v", err)
	}

	if err := (&ReportGenerateCmd{}).Run(f.Ctx); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if calls() != 1 {
		t.Errorf("LLM calls = %d, want 1", calls())
	}
	out := f.Output()
	for _, want := range []string{"Weekly report for 2024-01-08", "Slept on time most nights.", "- Two recall sessions", "Study time: 25m 00s"} {
		if !strings.Contains(out, want) {
			t.Errorf("generate output missing %q:\n%s", want, out)
		}
	}

	if err := (&ReportShowCmd{Date: "2024-01-14", JSON: true}).Run(f.Ctx); err != nil {
		t.Fatalf("show: %v", err)
	}
	var r models.WeeklyReport
	if err := json.Unmarshal(f.Out.Bytes(), &r); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if r.WeekStart != "2024-01-08" || r.Analysis != "Short sessions helped." {
		t.Errorf("report = %+v", r)
	}
	if calls() != 1 {
		t.Errorf("show must not call the LLM, calls = %d", calls())
	}
}

func TestReportShareCmd(t *testing.T) {
	f := clitest.New(t)
	f.AddUser(t, "ana@example.com")
	f.FakeLLM(t, reportReply)

	if err := (&ReportShareCmd{}).Run(f.Ctx); !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("share without webhook error = %v", err)
	}

	var got notifier.SupporterPayload
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()
	f.Ctx.Config.Supporter.WebhookURL = hook.URL

	if err := (&ReportShareCmd{}).Run(f.Ctx); err == nil {
		t.Fatal("expected error sharing a week without a report")
	}

	if err := (&ReportGenerateCmd{}).Run(f.Ctx); err != nil {
		t.Fatal(err)
	}
	f.Output()
	if err := (&ReportShareCmd{}).Run(f.Ctx); err != nil {
		t.Fatalf("share: %v", err)
	}
	if got.WeekStart != "2024-01-08" || !strings.Contains(got.Text, "Weekly study report for ana") {
		t.Errorf("payload = %+v", got)
	}
	if out := f.Output(); !strings.Contains(out, "Shared the report for the week of 2024-01-08") {
		t.Errorf("output = %q", out)
	}
}
