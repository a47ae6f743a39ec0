// Package outputtask implements the Output->Task reconciler: a stateful
// consumer of (line, isErr) pairs that parses raw phase output into field
// maps and reconciles them against a hierarchical tracker.Task.
package outputtask

import (
	"strconv"
	"time"

	"github.com/nilsjohansson/phaserun/internal/tracker"
)

// Field is one of the canonical keys the default Conversion produces.
type Field string

// Canonical field names, matching the wire-level strings parsers produce.
const (
	FieldEvent     Field = "event"
	FieldOperation Field = "operation"
	FieldTask      Field = "task"
	FieldTimestamp Field = "timestamp"
	FieldCompleted Field = "completed"
	FieldIncrement Field = "increment"
	FieldTotal     Field = "total"
	FieldUnit      Field = "unit"
	FieldResult    Field = "result"
)

// Parser inspects a raw output line and returns the key/value pairs it
// recognizes, or a nil/empty map for "no match" -- the line is then offered
// to the next configured parser.
type Parser func(line string) map[string]string

// Conversion turns the merged string key/value map produced by the
// configured parsers into the canonical Field-keyed map C5 reconciles
// against the tracker. Keys absent from the result are treated as missing.
type Conversion func(parsed map[string]string) map[Field]any

// DefaultConversion is the built-in Conversion: it renames the canonical
// string keys to Fields, parses TIMESTAMP as RFC 3339, coerces
// COMPLETED/INCREMENT/TOTAL to float64 when they parse as numbers (leaving
// the original string otherwise), and drops every key whose value is
// missing.
func DefaultConversion(parsed map[string]string) map[Field]any {
	out := make(map[Field]any)

	setString := func(f Field, key string) {
		if v, ok := parsed[key]; ok && v != "" {
			out[f] = v
		}
	}
	setNumberOrString := func(f Field, key string) {
		v, ok := parsed[key]
		if !ok || v == "" {
			return
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			out[f] = n
			return
		}
		out[f] = v
	}

	setString(FieldEvent, string(FieldEvent))
	setString(FieldTask, string(FieldTask))
	setString(FieldOperation, string(FieldOperation))
	setString(FieldUnit, string(FieldUnit))
	setString(FieldResult, string(FieldResult))
	setNumberOrString(FieldCompleted, string(FieldCompleted))
	setNumberOrString(FieldIncrement, string(FieldIncrement))
	setNumberOrString(FieldTotal, string(FieldTotal))

	if raw, ok := parsed[string(FieldTimestamp)]; ok && raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			out[FieldTimestamp] = ts
		}
	}

	return out
}

// Accumulator is the stateful C5 consumer: it owns an ordered parser list
// and a conversion function, and reconciles each accepted line against a
// tracker.Task. It is single-threaded per instance and assumes lines
// arrive in order from the enclosing phase.
type Accumulator struct {
	tracker    *tracker.Task
	parsers    []Parser
	conversion Conversion
	now        func() time.Time
}

// New builds an Accumulator targeting tr, using parsers in order and
// DefaultConversion. Use WithConversion to override the conversion.
func New(tr *tracker.Task, parsers []Parser, opts ...Option) *Accumulator {
	a := &Accumulator{
		tracker:    tr,
		parsers:    parsers,
		conversion: DefaultConversion,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithConversion overrides the default field conversion.
func WithConversion(c Conversion) Option {
	return func(a *Accumulator) { a.conversion = c }
}

// WithTimestampFunc overrides the fallback timestamp source used when a
// line carries no parseable TIMESTAMP field.
func WithTimestampFunc(fn func() time.Time) Option {
	return func(a *Accumulator) { a.now = fn }
}

// NewOutput runs a single (line, isErr) pair through the full pipeline:
// parse, convert, and reconcile against the tracker. isErr is accepted for
// interface symmetry with the output hook signature but is not itself
// reconciled -- the line content carries whatever fields the job chose to
// emit regardless of stream.
func (a *Accumulator) NewOutput(line string, _ bool) {
	merged := make(map[string]string)
	for _, p := range a.parsers {
		kv := p(line)
		for k, v := range kv {
			merged[k] = v
		}
	}
	if len(merged) == 0 {
		return
	}

	fields := a.conversion(merged)
	if len(fields) == 0 {
		return
	}

	a.reconcile(fields)
}

func (a *Accumulator) timestamp(fields map[Field]any) time.Time {
	if ts, ok := fields[FieldTimestamp].(time.Time); ok {
		return ts
	}
	return a.now()
}

// reconcile applies the field map to the tracker: resolve the target
// subtask, apply any operation update, record an event if no operation
// consumed it, and mark completion.
func (a *Accumulator) reconcile(fields map[Field]any) {
	ts := a.timestamp(fields)

	prevTail := a.tracker.LastSubtask()
	isFinishedSentinel := false

	var target *tracker.Task
	if name, ok := fields[FieldTask].(string); ok && name != "" {
		current := a.tracker.Subtask(name, ts)
		if prevTail != nil && prevTail == current {
			isFinishedSentinel = true
		}
		target = current
	} else if prevTail != nil && !prevTail.IsFinished() {
		target = prevTail
	} else {
		target = a.tracker
	}

	isOp := a.updateOperation(target, fields, ts)

	if event, ok := fields[FieldEvent].(string); ok && event != "" && !isOp {
		target.Event(event, ts)
	}

	result, hasResult := fields[FieldResult]
	if hasResult || isFinishedSentinel {
		target.Finished(result, ts)
	}
}

// updateOperation applies the COMPLETED/INCREMENT/TOTAL/UNIT fields to the
// operation named by OPERATION (falling back to EVENT). It reports whether
// an operation update occurred.
func (a *Accumulator) updateOperation(target *tracker.Task, fields map[Field]any, ts time.Time) bool {
	completed, hasCompleted := fields[FieldCompleted]
	increment, hasIncrement := fields[FieldIncrement]
	total, hasTotal := fields[FieldTotal]
	unit, hasUnit := fields[FieldUnit]

	if !hasCompleted && !hasIncrement && !hasTotal && !hasUnit {
		return false
	}

	name, _ := fields[FieldOperation].(string)
	if name == "" {
		name, _ = fields[FieldEvent].(string)
	}

	amount := completed
	if !hasCompleted {
		amount = increment
	}

	unitStr, _ := unit.(string)
	op := target.Operation(name, ts)
	op.Update(amount, total, unitStr, hasIncrement, ts)
	return true
}
