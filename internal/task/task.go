// Package task is a minimal dependency-graph runner: tasks declare file
// dependencies and a single output target, and a build walks the graph in
// dependency order with incremental-rebuild semantics. It stands in for a
// full task engine so the rest of the system only depends on this contract.
package task

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Task is one unit of work: an action producing Target from Deps.
type Task struct {
	// Name uniquely identifies the task; by convention the output path.
	Name string

	// Deps are input file paths. A dep produced by another task's Target
	// forms a graph edge; any other dep must already exist on disk.
	Deps []string

	// Target is the single declared output path.
	Target string

	// Action performs the work. A returned error is a graceful per-task
	// failure: dependents are skipped, unrelated branches still run.
	Action func(ctx context.Context) error
}

// BuildError is the aggregate verdict when one or more tasks failed. It
// deliberately does not enumerate the failures; that detail is in the log.
type BuildError struct {
	Failed int
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed: %d task(s) did not complete", e.Failed)
}

type state int

const (
	statePending state = iota
	stateDone
	stateFailed
)

// Runner executes task graphs.
type Runner struct {
	log zerolog.Logger
}

// NewRunner returns a Runner logging through log.
func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{log: log}
}

type node struct {
	task  *Task
	state state
	ran   bool // action actually executed (vs. skipped as up to date)
}

// Build runs every task, ordered by declared file edges. A task runs only
// when its target is missing, older than a dependency, or a producing
// dependency was rebuilt; otherwise it is skipped as up to date. Action
// errors fail the task and transitively its dependents, but unrelated
// branches continue. Returns *BuildError if anything failed.
func (r *Runner) Build(ctx context.Context, tasks []*Task) error {
	nodes := make(map[string]*node, len(tasks))
	byTarget := make(map[string]*node, len(tasks))

	for _, t := range tasks {
		if _, ok := nodes[t.Name]; ok {
			return fmt.Errorf("duplicate task name %q", t.Name)
		}
		n := &node{task: t}
		nodes[t.Name] = n
		if t.Target != "" {
			if _, ok := byTarget[t.Target]; ok {
				return fmt.Errorf("duplicate target %q", t.Target)
			}
			byTarget[t.Target] = n
		}
	}

	visiting := make(map[*node]bool)
	failed := 0

	var visit func(n *node) state
	visit = func(n *node) state {
		if n.state != statePending {
			return n.state
		}
		if visiting[n] {
			// Cycles cannot be built; treat as failure of this branch.
			r.log.Error().Str("task", n.task.Name).Msg("dependency cycle")
			n.state = stateFailed
			failed++
			return n.state
		}
		visiting[n] = true
		defer delete(visiting, n)

		depRebuilt := false
		for _, dep := range n.task.Deps {
			producer, ok := byTarget[dep]
			if !ok {
				continue
			}
			switch visit(producer) {
			case stateFailed:
				r.log.Error().
					Str("task", n.task.Name).
					Str("dependency", dep).
					Msg("skipped: dependency failed")
				n.state = stateFailed
				failed++
				return n.state
			case stateDone:
				depRebuilt = depRebuilt || producer.ran
			}
		}

		for _, dep := range n.task.Deps {
			if _, ok := byTarget[dep]; ok {
				continue
			}
			if _, err := os.Stat(dep); err != nil {
				r.log.Error().
					Str("task", n.task.Name).
					Str("dependency", dep).
					Msg("failed: missing input file")
				n.state = stateFailed
				failed++
				return n.state
			}
		}

		if !depRebuilt && upToDate(n.task) {
			r.log.Debug().Str("task", n.task.Name).Msg("up to date")
			n.state = stateDone
			return n.state
		}

		r.log.Info().Str("task", n.task.Name).Msg("building")
		if err := n.task.Action(ctx); err != nil {
			r.log.Error().Err(err).Str("task", n.task.Name).Msg("task failed")
			n.state = stateFailed
			failed++
			return n.state
		}
		n.ran = true
		n.state = stateDone
		return n.state
	}

	for _, t := range tasks {
		visit(nodes[t.Name])
	}

	if failed > 0 {
		return &BuildError{Failed: failed}
	}
	return nil
}

// upToDate reports whether the task's target exists and is no older than
// any of its dependency files.
func upToDate(t *Task) bool {
	if t.Target == "" {
		return false
	}
	ti, err := os.Stat(t.Target)
	if err != nil {
		return false
	}
	for _, dep := range t.Deps {
		di, err := os.Stat(dep)
		if err != nil {
			return false
		}
		if di.ModTime().After(ti.ModTime()) {
			return false
		}
	}
	return true
}
