// Package tracker implements the hierarchical task/operation aggregate: a
// tree of subtasks, each able to host named operations and point-in-time
// events, mutated by internal/outputtask from parsed phase output and read
// concurrently by external observers.
//
// The tracker owns its own thread-safety; every exported method takes the
// node's mutex.
package tracker

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Task is one node in the tracker tree: the root, or a subtask reached via
// Subtask. A Task owns an ordered list of child subtasks and an ordered,
// deduplicated list of operations keyed by name.
type Task struct {
	mu sync.Mutex

	name      string
	createdAt time.Time

	subtasks   []*Task
	operations []*Operation
	opIndex    map[uint64]*Operation
	events     []Event

	finished   bool
	result     any
	finishedAt time.Time
}

// Event is a point-in-time marker recorded against a Task.
type Event struct {
	Name      string
	Timestamp time.Time
}

// New creates a root tracker node. Root nodes have an empty Name; when a
// line names no task and there is no open subtask, the root is the
// reconciliation target.
func New() *Task {
	return &Task{opIndex: make(map[uint64]*Operation)}
}

// Name returns the task's name ("" for the root).
func (t *Task) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// Subtasks returns an independent snapshot of the task's ordered child
// list.
func (t *Task) Subtasks() []*Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Task, len(t.subtasks))
	copy(out, t.subtasks)
	return out
}

// Subtask is an idempotent lookup-or-create: if the last child subtask's
// name equals name, it is returned unchanged; otherwise a new subtask is
// created, appended, and returned.
//
// This "same name as the tail" comparison is the mechanism
// internal/outputtask relies on to detect that a subtask has reappeared
// and is therefore finished. It is a convention, not a guarantee: output
// that repeats a task name without meaning "done" will be misread.
func (t *Task) Subtask(name string, ts time.Time) *Task {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.subtasks); n > 0 && t.subtasks[n-1].name == name {
		return t.subtasks[n-1]
	}

	child := &Task{name: name, createdAt: ts, opIndex: make(map[uint64]*Operation)}
	t.subtasks = append(t.subtasks, child)
	return child
}

// LastSubtask returns the most recently appended child subtask, or nil if
// the task has none.
func (t *Task) LastSubtask() *Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.subtasks) == 0 {
		return nil
	}
	return t.subtasks[len(t.subtasks)-1]
}

// Operation is an idempotent lookup-or-create of a named operation on the
// task. Operation identity is keyed by an xxhash of the name rather than
// the raw string, so repeated high-frequency output lines reconciling the
// same operation name do not repeatedly rehash/compare the full string on
// every map probe.
func (t *Task) Operation(name string, ts time.Time) *Operation {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := xxhash.Sum64String(name)
	if op, ok := t.opIndex[key]; ok {
		return op
	}

	op := &Operation{Name: name, CreatedAt: ts, UpdatedAt: ts}
	t.opIndex[key] = op
	t.operations = append(t.operations, op)
	return op
}

// Operations returns an independent snapshot of the task's operations, in
// creation order.
func (t *Task) Operations() []*Operation {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Operation, len(t.operations))
	copy(out, t.operations)
	return out
}

// Event records a point-in-time event against the task.
func (t *Task) Event(name string, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, Event{Name: name, Timestamp: ts})
}

// Events returns an independent snapshot of the task's recorded events.
func (t *Task) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Finished marks the task as complete with the given result.
func (t *Task) Finished(result any, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = true
	t.result = result
	t.finishedAt = ts
}

// IsFinished reports whether Finished has been called on this task.
func (t *Task) IsFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

// Result returns the value passed to Finished, or nil if the task has not
// finished.
func (t *Task) Result() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}
