package weekly

import (
	"reflect"
	"testing"
	"time"

	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/utils"
)

func at(day string, hour int) time.Time {
	d, _ := time.Parse("2006-01-02", day)
	return d.Add(time.Duration(hour) * time.Hour)
}

func tp(t time.Time) *time.Time { return &t }

func TestSummarize(t *testing.T) {
	w, _ := ParseWeekRef("2024-01-10")
	now := at("2024-01-12", 12)

	list := []models.Task{
		{ID: "1", Title: "Calculus", Due: tp(at("2024-01-08", 9)), WorkedSeconds: 600, State: models.Done{}, CreatedAt: at("2024-01-01", 0)},
		{ID: "2", Title: "Essay", Due: tp(at("2024-01-10", 18)), WorkedSeconds: 30, State: models.Running{Since: now.Add(-90 * time.Second)}, CreatedAt: at("2024-01-02", 0)},
		{ID: "3", Title: "Reading", WorkedSeconds: 300, State: models.Paused{}, CreatedAt: at("2024-01-09", 10)},
		{ID: "4", Title: "Flashcards", Due: tp(at("2024-01-10", 8)), State: models.Idle{}, CreatedAt: at("2024-01-09", 0)},
		{ID: "5", Title: "Old", Due: tp(at("2024-01-01", 9)), WorkedSeconds: 9999, State: models.Done{}, CreatedAt: at("2023-12-20", 0)},
		{ID: "6", Title: "Next week", Due: tp(at("2024-01-16", 9)), WorkedSeconds: 50, State: models.Paused{}, CreatedAt: at("2024-01-11", 0)},
	}

	got := Summarize(list, w, now)

	if got.TotalSeconds != 600+120+300+0+50 {
		t.Errorf("TotalSeconds = %d, want %d", got.TotalSeconds, 600+120+300+50)
	}

	wantDaily := []int64{600, 0, 120, 0, 0, 0, 0}
	for i, b := range got.Daily {
		if b.Seconds != wantDaily[i] {
			t.Errorf("Daily[%d] (%s) = %d, want %d", i, b.Date, b.Seconds, wantDaily[i])
		}
	}
	if got.Daily[0].Label != "Mon" || got.Daily[6].Label != "Sun" || got.Daily[6].Date != "2024-01-14" {
		t.Errorf("Daily labels = %+v", got.Daily)
	}

	wantCounts := StatusCounts{Todo: 1, InProgress: 1, Paused: 2, Done: 1}
	if got.StatusCounts != wantCounts {
		t.Errorf("StatusCounts = %+v, want %+v", got.StatusCounts, wantCounts)
	}

	wantTop := []TopTask{
		{ID: "1", Title: "Calculus", Seconds: 600},
		{ID: "3", Title: "Reading", Seconds: 300},
		{ID: "2", Title: "Essay", Seconds: 120},
	}
	if !reflect.DeepEqual(got.TopTasks, wantTop) {
		t.Errorf("TopTasks = %+v, want %+v", got.TopTasks, wantTop)
	}
}

func TestSummarize_TopTaskTieBreak(t *testing.T) {
	w, _ := ParseWeekRef("2024-01-10")
	created := at("2024-01-09", 0)

	list := []models.Task{
		{ID: "b", Title: "Beta", WorkedSeconds: 100, State: models.Paused{}, CreatedAt: created},
		{ID: "a", Title: "Alpha", WorkedSeconds: 100, State: models.Paused{}, CreatedAt: created},
	}

	got := Summarize(list, w, at("2024-01-10", 0))
	if len(got.TopTasks) != 2 || got.TopTasks[0].Title != "Alpha" || got.TopTasks[1].Title != "Beta" {
		t.Errorf("TopTasks = %+v, want Alpha then Beta", got.TopTasks)
	}
}

func TestSummarize_TopTaskTieAtZero(t *testing.T) {
	w, _ := ParseWeekRef("2024-01-10")
	created := at("2024-01-09", 0)

	list := []models.Task{
		{ID: "b", Title: "Beta", State: models.Idle{}, CreatedAt: created},
		{ID: "a", Title: "Alpha", State: models.Idle{}, CreatedAt: created},
	}

	got := Summarize(list, w, at("2024-01-10", 0))
	want := []TopTask{{ID: "a", Title: "Alpha"}, {ID: "b", Title: "Beta"}}
	if !reflect.DeepEqual(got.TopTasks, want) {
		t.Errorf("TopTasks = %+v, want %+v", got.TopTasks, want)
	}
}

func TestSummarize_DueDatesIgnoreLocalZone(t *testing.T) {
	prev := time.Local
	t.Cleanup(func() { time.Local = prev })
	time.Local = time.FixedZone("UTC+9", 9*60*60)

	w, _ := ParseWeekRef("2024-01-10")
	monday, err := utils.ParseDue("2024-01-08")
	if err != nil {
		t.Fatal(err)
	}
	sunday, err := utils.ParseDue("2024-01-14")
	if err != nil {
		t.Fatal(err)
	}
	list := []models.Task{
		{ID: "1", Title: "Mon", Due: &monday, WorkedSeconds: 100, State: models.Done{}, CreatedAt: at("2024-01-01", 0)},
		{ID: "2", Title: "Sun", Due: &sunday, WorkedSeconds: 50, State: models.Done{}, CreatedAt: at("2024-01-01", 0)},
	}

	got := Summarize(list, w, at("2024-01-15", 0))
	if got.TotalSeconds != 150 {
		t.Errorf("TotalSeconds = %d, want 150", got.TotalSeconds)
	}
	if got.Daily[0].Seconds != 100 || got.Daily[5].Seconds != 0 || got.Daily[6].Seconds != 50 {
		t.Errorf("Daily = %+v, want Mon 100 and Sun 50", got.Daily)
	}
}

func TestSummarize_LimitsTopTasks(t *testing.T) {
	w, _ := ParseWeekRef("2024-01-10")
	created := at("2024-01-09", 0)
	var list []models.Task
	for i, title := range []string{"A", "B", "C", "D", "E"} {
		list = append(list, models.Task{ID: title, Title: title, WorkedSeconds: int64(10 * (i + 1)), State: models.Done{}, CreatedAt: created})
	}

	got := Summarize(list, w, created)
	if len(got.TopTasks) != TopTaskLimit {
		t.Fatalf("len(TopTasks) = %d, want %d", len(got.TopTasks), TopTaskLimit)
	}
	if got.TopTasks[0].Title != "E" {
		t.Errorf("TopTasks[0] = %v, want E", got.TopTasks[0].Title)
	}
}

func TestSummarize_Empty(t *testing.T) {
	w, _ := ParseWeekRef("2024-01-10")
	got := Summarize(nil, w, at("2024-01-10", 0))

	if got.TotalSeconds != 0 {
		t.Errorf("TotalSeconds = %d, want 0", got.TotalSeconds)
	}
	if len(got.Daily) != 7 {
		t.Fatalf("len(Daily) = %d, want 7", len(got.Daily))
	}
	for _, b := range got.Daily {
		if b.Seconds != 0 {
			t.Errorf("Daily %s = %d, want 0", b.Date, b.Seconds)
		}
	}
	if got.StatusCounts != (StatusCounts{}) {
		t.Errorf("StatusCounts = %+v, want zero", got.StatusCounts)
	}
	if got.TopTasks == nil || len(got.TopTasks) != 0 {
		t.Errorf("TopTasks = %#v, want empty slice", got.TopTasks)
	}
}
