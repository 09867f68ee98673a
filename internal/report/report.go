// Package report builds the weekly study report: the task and credo summaries
// for a Monday-to-Sunday window, an LLM-written review and the short text a
// student can forward to a supporter.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/llm"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/notifier"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/utils"
	"github.com/julianstephens/studylit/internal/weekly"
)

// MaxFocusItems caps the next-week focus list.
const MaxFocusItems = 5

// ErrEmptyReport is returned when the model answers with no usable fields
var ErrEmptyReport = errors.New("the coach returned an empty report")

type Store interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	GetTasksInRange(ctx context.Context, userID string, from, until time.Time) ([]models.Task, error)
	GetCredoLogs(ctx context.Context, userID, startDay, endDay string) ([]models.CredoLog, error)
	SaveWeeklyReport(ctx context.Context, report models.WeeklyReport) error
	GetWeeklyReport(ctx context.Context, userID, weekStart string) (models.WeeklyReport, error)
}

// Sender delivers supporter text. *notifier.Notifier satisfies it.
type Sender interface {
	Configured() bool
	Notify(ctx context.Context, payload notifier.SupporterPayload) error
}

// Week is the aggregated view of one window.
type Week struct {
	Window weekly.Window       `json:"-"`
	Start  string              `json:"weekStart"`
	End    string              `json:"weekEnd"`
	Tasks  weekly.TaskSummary  `json:"summary"`
	Credo  weekly.CredoSummary `json:"credo"`
}

type Service struct {
	store  Store
	client llm.Client
	sender Sender
	now    func() time.Time
}

// NewService wires the report generator. client and sender may be nil when
// only cached reports and summaries are needed.
func NewService(store Store, client llm.Client, sender Sender) *Service {
	return &Service{store: store, client: client, sender: sender, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Week aggregates userID's tasks and credo logs for the week containing ref.
func (s *Service) Week(ctx context.Context, userID string, ref time.Time) (Week, error) {
	window := weekly.WeekWindow(ref)
	list, err := s.store.GetTasksInRange(ctx, userID, window.Start, window.Until())
	if err != nil {
		return Week{}, fmt.Errorf("failed to load tasks: %w", err)
	}
	logs, err := s.store.GetCredoLogs(ctx, userID, window.StartDay(), window.EndDay())
	if err != nil {
		return Week{}, fmt.Errorf("failed to load credo logs: %w", err)
	}
	return Week{
		Window: window,
		Start:  window.StartDay(),
		End:    window.EndDay(),
		Tasks:  weekly.Summarize(list, window, s.now().UTC()),
		Credo:  weekly.SummarizeCredo(logs, window),
	}, nil
}

// Get returns the cached report for the week containing ref.
func (s *Service) Get(ctx context.Context, userID string, ref time.Time) (models.WeeklyReport, error) {
	return s.store.GetWeeklyReport(ctx, userID, weekly.WeekWindow(ref).StartDay())
}

type reportResponse struct {
	ConditionSummary string   `json:"conditionSummary"`
	ActivitySummary  string   `json:"activitySummary"`
	Analysis         string   `json:"analysis"`
	NextFocus        []string `json:"nextFocus"`
}

const reportInstructions = `You write a weekly review for a student. Reply with a JSON object only:
{"conditionSummary":"...","activitySummary":"...","analysis":"...","nextFocus":["..."]}
conditionSummary describes habits and wellbeing from the credo record.
activitySummary describes what was studied and for how long.
analysis names one pattern that helped and one that hurt.
nextFocus lists at most %d short, concrete goals for next week.`

// Generate builds and stores the report for the week containing ref,
// replacing any earlier report for that week.
func (s *Service) Generate(ctx context.Context, userID string, ref time.Time) (models.WeeklyReport, error) {
	if s.client == nil {
		return models.WeeklyReport{}, llm.ErrNoAPIKey
	}
	week, err := s.Week(ctx, userID, ref)
	if err != nil {
		return models.WeeklyReport{}, err
	}
	name, err := s.displayName(ctx, userID)
	if err != nil {
		return models.WeeklyReport{}, err
	}

	facts, err := json.Marshal(week)
	if err != nil {
		return models.WeeklyReport{}, fmt.Errorf("failed to encode week summary: %w", err)
	}
	prompt := []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(reportInstructions, MaxFocusItems)},
		{Role: llm.RoleUser, Content: string(facts)},
	}

	var resp reportResponse
	if err := s.client.ChatJSON(ctx, prompt, &resp); err != nil {
		logger.Warn("weekly report failed", "user", userID, "week", week.Start, "err", err)
		return models.WeeklyReport{}, fmt.Errorf("failed to generate weekly report: %w", err)
	}
	resp = clean(resp)
	if resp.ConditionSummary == "" && resp.ActivitySummary == "" && resp.Analysis == "" {
		return models.WeeklyReport{}, ErrEmptyReport
	}

	snapshot, err := json.Marshal(week.Tasks)
	if err != nil {
		return models.WeeklyReport{}, fmt.Errorf("failed to encode summary snapshot: %w", err)
	}

	now := s.now().UTC()
	report := models.WeeklyReport{
		UserID:           userID,
		WeekStart:        week.Start,
		ConditionSummary: resp.ConditionSummary,
		ActivitySummary:  resp.ActivitySummary,
		Analysis:         resp.Analysis,
		NextFocus:        resp.NextFocus,
		SummaryJSON:      string(snapshot),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	report.SupporterText = SupporterText(name, week, report)

	if err := s.store.SaveWeeklyReport(ctx, report); err != nil {
		return models.WeeklyReport{}, err
	}
	logger.Info("weekly report saved", "user", userID, "week", week.Start)
	return s.store.GetWeeklyReport(ctx, userID, week.Start)
}

// Share sends the cached report's supporter text for the week containing ref.
func (s *Service) Share(ctx context.Context, userID string, ref time.Time) (models.WeeklyReport, error) {
	if s.sender == nil || !s.sender.Configured() {
		return models.WeeklyReport{}, notifier.ErrNotConfigured
	}
	report, err := s.Get(ctx, userID, ref)
	if err != nil {
		return models.WeeklyReport{}, err
	}
	name, err := s.displayName(ctx, userID)
	if err != nil {
		return models.WeeklyReport{}, err
	}
	payload := notifier.SupporterPayload{Text: report.SupporterText, WeekStart: report.WeekStart, DisplayName: name}
	if err := s.sender.Notify(ctx, payload); err != nil {
		return models.WeeklyReport{}, fmt.Errorf("failed to share weekly report: %w", err)
	}
	logger.Info("weekly report shared", "user", userID, "week", report.WeekStart)
	return report, nil
}

func (s *Service) displayName(ctx context.Context, userID string) (string, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	return user.DisplayName, nil
}

func clean(r reportResponse) reportResponse {
	r.ConditionSummary = strings.TrimSpace(r.ConditionSummary)
	r.ActivitySummary = strings.TrimSpace(r.ActivitySummary)
	r.Analysis = strings.TrimSpace(r.Analysis)
	focus := make([]string, 0, len(r.NextFocus))
	for _, f := range r.NextFocus {
		if f = strings.TrimSpace(f); f != "" && len(focus) < MaxFocusItems {
			focus = append(focus, f)
		}
	}
	r.NextFocus = focus
	return r
}

// SupporterText renders the plain-text message shared with a supporter.
func SupporterText(name string, week Week, r models.WeeklyReport) string {
	var b strings.Builder
	if name == "" {
		name = "your student"
	}
	fmt.Fprintf(&b, "Weekly study report for %s (%s to %s)\n\n", name, week.Start, week.End)

	counts := week.Tasks.StatusCounts
	total := counts.Todo + counts.InProgress + counts.Paused + counts.Done
	fmt.Fprintf(&b, "Study time: %s\n", utils.FormatSeconds(week.Tasks.TotalSeconds))
	fmt.Fprintf(&b, "Tasks done: %d of %d\n", counts.Done, total)
	fmt.Fprintf(&b, "Credo practiced: %d%%\n", week.Credo.PracticedRate)

	if r.ConditionSummary != "" {
		fmt.Fprintf(&b, "\n%s\n", r.ConditionSummary)
	}
	if r.ActivitySummary != "" {
		fmt.Fprintf(&b, "\n%s\n", r.ActivitySummary)
	}
	if len(r.NextFocus) > 0 {
		b.WriteString("\nNext week:\n")
		for _, f := range r.NextFocus {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParseRef reads a YYYY-MM-DD reference day; an empty string means now.
func ParseRef(day string, now time.Time) (time.Time, error) {
	if day == "" {
		return now.UTC(), nil
	}
	t, err := time.Parse(constants.DateFormat, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", day)
	}
	return t, nil
}
