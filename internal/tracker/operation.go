package tracker

import (
	"strconv"
	"sync"
	"time"
)

// Operation is a named, progressing unit of work recorded under a Task.
// Completed/Total are kept as `any` because internal/outputtask only
// coerces field values to a number when they parse cleanly, leaving the
// raw string otherwise; the operation must be able to display either.
type Operation struct {
	mu sync.Mutex

	Name      string
	Completed any
	Total     any
	Unit      string
	Increment bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Update applies a new progress reading to the operation.
//
// When increment is true, amount is a delta: if both the existing
// Completed value and amount are numeric, they are summed; otherwise
// amount replaces Completed outright (there is nothing sensible to add to).
// When increment is false, amount is an absolute reading and always
// replaces Completed.
//
// total and unit only replace their respective fields when non-nil/non-empty,
// so a later line that only reports completed progress does not blank out
// the total or unit recorded by an earlier line for the same operation; a
// nil amount (a line reporting only total/unit) likewise leaves Completed
// untouched.
func (o *Operation) Update(amount, total any, unit string, increment bool, ts time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if amount == nil {
		o.finishUpdate(total, unit, increment, ts)
		return
	}
	if increment {
		if cur, ok := toFloat(o.Completed); ok {
			if delta, ok2 := toFloat(amount); ok2 {
				o.Completed = cur + delta
				o.finishUpdate(total, unit, increment, ts)
				return
			}
		}
	}
	o.Completed = amount
	o.finishUpdate(total, unit, increment, ts)
}

func (o *Operation) finishUpdate(total any, unit string, increment bool, ts time.Time) {
	if total != nil {
		o.Total = total
	}
	if unit != "" {
		o.Unit = unit
	}
	o.Increment = increment
	o.UpdatedAt = ts
}

// OperationView is a lock-free copy of an Operation's current values,
// safe to hold and compare without touching the live operation again.
type OperationView struct {
	Name      string
	Completed any
	Total     any
	Unit      string
	Increment bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot returns an independent view of the operation's current values.
func (o *Operation) Snapshot() OperationView {
	o.mu.Lock()
	defer o.mu.Unlock()
	return OperationView{
		Name:      o.Name,
		Completed: o.Completed,
		Total:     o.Total,
		Unit:      o.Unit,
		Increment: o.Increment,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
