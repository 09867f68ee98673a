package tasks

import (
	"errors"
	"reflect"
	"testing"

	"github.com/julianstephens/studylit/internal/models"
)

func ptr(s string) *string { return &s }

func task(id string, parent string) models.Task {
	t := models.Task{ID: id, Title: id, State: models.Idle{}}
	if parent != "" {
		t.ParentID = ptr(parent)
	}
	return t
}

// shape renders a forest as nested ids so trees can be compared structurally.
func shape(forest []*Node) []any {
	out := make([]any, 0, len(forest))
	for _, n := range forest {
		out = append(out, map[string]any{"id": n.Task.ID, "children": shape(n.Children)})
	}
	return out
}

func TestBuildTree(t *testing.T) {
	tests := []struct {
		name  string
		input []models.Task
		want  []any
	}{
		{
			name:  "empty input",
			input: nil,
			want:  []any{},
		},
		{
			name:  "orphan becomes root",
			input: []models.Task{task("a", "ghost")},
			want:  []any{map[string]any{"id": "a", "children": []any{}}},
		},
		{
			name: "children listed before parent",
			input: []models.Task{
				task("c1", "p"),
				task("p", ""),
				task("c2", "p"),
			},
			want: []any{
				map[string]any{"id": "p", "children": []any{
					map[string]any{"id": "c1", "children": []any{}},
					map[string]any{"id": "c2", "children": []any{}},
				}},
			},
		},
		{
			name: "nested and multiple roots keep input order",
			input: []models.Task{
				task("r2", ""),
				task("r1", ""),
				task("g", "c"),
				task("c", "r1"),
			},
			want: []any{
				map[string]any{"id": "r2", "children": []any{}},
				map[string]any{"id": "r1", "children": []any{
					map[string]any{"id": "c", "children": []any{
						map[string]any{"id": "g", "children": []any{}},
					}},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forest, err := BuildTree(tt.input)
			if err != nil {
				t.Fatalf("BuildTree() error = %v", err)
			}
			if got := shape(forest); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildTree() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildTree_RoundTrip(t *testing.T) {
	input := []models.Task{
		task("g2", "c1"),
		task("r1", ""),
		task("c1", "r1"),
		task("orphan", "missing"),
		task("c2", "r1"),
		task("g1", "c1"),
		task("r2", ""),
	}

	first, err := BuildTree(input)
	if err != nil {
		t.Fatalf("BuildTree() error = %v", err)
	}
	second, err := BuildTree(Flatten(first))
	if err != nil {
		t.Fatalf("BuildTree(Flatten()) error = %v", err)
	}
	if !reflect.DeepEqual(shape(first), shape(second)) {
		t.Errorf("round trip changed shape:\n first = %v\nsecond = %v", shape(first), shape(second))
	}
	if got := len(Flatten(second)); got != len(input) {
		t.Errorf("Flatten() returned %d tasks, want %d", got, len(input))
	}
}

func TestBuildTree_Cycles(t *testing.T) {
	tests := []struct {
		name  string
		input []models.Task
	}{
		{name: "self parent", input: []models.Task{task("a", "a")}},
		{name: "two node loop", input: []models.Task{task("a", "b"), task("b", "a")}},
		{name: "loop beside a valid tree", input: []models.Task{
			task("root", ""),
			task("child", "root"),
			task("x", "z"),
			task("y", "x"),
			task("z", "y"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildTree(tt.input)
			if !errors.Is(err, ErrCycle) {
				t.Errorf("BuildTree() error = %v, want ErrCycle", err)
			}
		})
	}
}

func TestBuildTree_DuplicateID(t *testing.T) {
	_, err := BuildTree([]models.Task{task("a", ""), task("a", "")})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("BuildTree() error = %v, want ErrDuplicateID", err)
	}
}

func TestWalk_Depth(t *testing.T) {
	forest, err := BuildTree([]models.Task{task("r", ""), task("c", "r"), task("g", "c")})
	if err != nil {
		t.Fatalf("BuildTree() error = %v", err)
	}
	depths := map[string]int{}
	Walk(forest, func(n *Node, depth int) {
		depths[n.Task.ID] = depth
	})
	want := map[string]int{"r": 0, "c": 1, "g": 2}
	if !reflect.DeepEqual(depths, want) {
		t.Errorf("Walk() depths = %v, want %v", depths, want)
	}
}
