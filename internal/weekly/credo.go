package weekly

import (
	"math"
	"sort"
	"strings"

	"github.com/julianstephens/studylit/internal/models"
)

// HighlightLimit caps the notes surfaced in a credo summary.
const HighlightLimit = 3

type RankEntry struct {
	Item  string `json:"item"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type MissingEntry struct {
	Item  string `json:"item"`
	Label string `json:"label"`
}

// CredoSummary is the weekly practice breakdown.
type CredoSummary struct {
	PracticedRate int            `json:"practicedRate"`
	Ranking       []RankEntry    `json:"ranking"`
	Missing       []MissingEntry `json:"missing"`
	Highlights    []string       `json:"highlights"`
}

// SummarizeCredo computes practice rate, ranking, missing items and note
// highlights for logs inside the window. Logs for unknown items are ignored.
func SummarizeCredo(logs []models.CredoLog, w Window) CredoSummary {
	counts := make(map[string]int, len(models.CredoItems))
	var noted []models.CredoLog

	for _, l := range logs {
		if !w.ContainsDay(l.Day) || models.CredoOrder(l.Item) < 0 {
			continue
		}
		if l.Done {
			counts[l.Item]++
		}
		if strings.TrimSpace(l.Note) != "" {
			noted = append(noted, l)
		}
	}

	summary := CredoSummary{
		Ranking:    []RankEntry{},
		Missing:    []MissingEntry{},
		Highlights: []string{},
	}

	for _, item := range models.CredoItems {
		if n := counts[item.ID]; n > 0 {
			summary.Ranking = append(summary.Ranking, RankEntry{Item: item.ID, Label: item.Label, Count: n})
		} else {
			summary.Missing = append(summary.Missing, MissingEntry{Item: item.ID, Label: item.Label})
		}
	}
	summary.PracticedRate = int(math.Round(float64(len(summary.Ranking)) * 100 / float64(len(models.CredoItems))))

	sort.SliceStable(summary.Ranking, func(i, j int) bool {
		if summary.Ranking[i].Count != summary.Ranking[j].Count {
			return summary.Ranking[i].Count > summary.Ranking[j].Count
		}
		return summary.Ranking[i].Item < summary.Ranking[j].Item
	})

	sort.SliceStable(noted, func(i, j int) bool {
		if noted[i].Day != noted[j].Day {
			return noted[i].Day > noted[j].Day
		}
		return models.CredoOrder(noted[i].Item) < models.CredoOrder(noted[j].Item)
	})
	for _, l := range noted {
		if len(summary.Highlights) == HighlightLimit {
			break
		}
		summary.Highlights = append(summary.Highlights, strings.TrimSpace(l.Note))
	}

	return summary
}
