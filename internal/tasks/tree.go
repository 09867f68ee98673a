// Package tasks holds the rules that operate on task hierarchies: building
// the parent/child tree, status transitions, and the parent cascade.
package tasks

import (
	"errors"
	"fmt"

	"github.com/julianstephens/studylit/internal/models"
)

var (
	// ErrCycle is returned when parent references loop back on themselves
	ErrCycle = errors.New("task hierarchy contains a cycle")
	// ErrDuplicateID is returned when the same task id appears twice in one build
	ErrDuplicateID = errors.New("duplicate task id")
)

// Node is a task together with its direct children.
type Node struct {
	Task     models.Task
	Children []*Node
}

// BuildTree assembles flat task rows into a forest. Roots are tasks without a
// parent or whose parent is not part of the input. Siblings keep their input
// order. Tasks that can only be reached through a parent cycle make the build
// fail with ErrCycle.
func BuildTree(list []models.Task) ([]*Node, error) {
	ids := make(map[string]struct{}, len(list))
	for _, t := range list {
		if _, dup := ids[t.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, t.ID)
		}
		ids[t.ID] = struct{}{}
	}

	children := make(map[string][]int)
	var roots []int
	for i, t := range list {
		if t.HasParent() {
			if _, ok := ids[*t.ParentID]; ok {
				children[*t.ParentID] = append(children[*t.ParentID], i)
				continue
			}
		}
		roots = append(roots, i)
	}

	visited := make([]bool, len(list))
	var build func(i int) *Node
	build = func(i int) *Node {
		visited[i] = true
		node := &Node{Task: list[i], Children: []*Node{}}
		for _, c := range children[list[i].ID] {
			if visited[c] {
				continue
			}
			node.Children = append(node.Children, build(c))
		}
		return node
	}

	forest := make([]*Node, 0, len(roots))
	for _, r := range roots {
		forest = append(forest, build(r))
	}

	for i, seen := range visited {
		if !seen {
			return nil, fmt.Errorf("%w: task %s", ErrCycle, list[i].ID)
		}
	}
	return forest, nil
}

// Flatten returns the tasks of a forest in pre-order.
func Flatten(forest []*Node) []models.Task {
	var out []models.Task
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out = append(out, n.Task)
			walk(n.Children)
		}
	}
	walk(forest)
	return out
}

// Walk calls fn for every node in pre-order with its depth (roots are 0).
func Walk(forest []*Node, fn func(n *Node, depth int)) {
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(forest, 0)
}
