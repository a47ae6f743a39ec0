// Package runctx implements the concrete RunContext the phaser package
// installs before each Phase.Run call: a handle giving the phase access to
// the shared task tracker, an output sink routed through the Phaser's
// output hook, and a charmbracelet/log-backed logging handler that
// forwards formatted records through that same sink.
package runctx

import (
	"github.com/charmbracelet/log"

	"github.com/nilsjohansson/phaserun/internal/lifecycle"
	"github.com/nilsjohansson/phaserun/internal/phase"
	"github.com/nilsjohansson/phaserun/internal/tracker"
)

// OutputSink is the narrow surface Context needs from its owner to forward
// output lines; internal/phaser's Phaser satisfies this by closing over its
// own output hook and the phase currently executing.
type OutputSink func(info lifecycle.PhaseInfo, line string, isErr bool)

// Context is the concrete phase.RunContext implementation. A Context is
// bound to exactly one phase's Run call and must not be retained past it.
type Context struct {
	info    lifecycle.PhaseInfo
	tracker *tracker.Task
	sink    OutputSink
}

// New builds a Context for the given phase info, tracker, and output sink.
// tracker may be nil; phases must tolerate that.
func New(info lifecycle.PhaseInfo, tr *tracker.Task, sink OutputSink) *Context {
	return &Context{info: info, tracker: tr, sink: sink}
}

// TaskTracker returns the shared tracker, or nil if none was supplied.
func (c *Context) TaskTracker() *tracker.Task {
	return c.tracker
}

// NewOutput forwards line to the owning Phaser's output hook, tagged with
// this context's phase info.
func (c *Context) NewOutput(line string, isErr bool) {
	if c.sink == nil {
		return
	}
	c.sink(c.info, line, isErr)
}

// CreateLoggingHandler returns a log sink that forwards formatted records
// through NewOutput, with isErr set for records at or above error level.
func (c *Context) CreateLoggingHandler() phase.LoggingHandler {
	return &forwardingHandler{ctx: c}
}

// forwardingHandler adapts Context.NewOutput to the phase.LoggingHandler
// surface: a phase can attach it to its own logger so that anything the
// phase logs also reaches external output observers.
type forwardingHandler struct {
	ctx *Context
}

func (h *forwardingHandler) Log(level string, msg string) {
	isErr := level == log.ErrorLevel.String() || level == log.FatalLevel.String()
	h.ctx.NewOutput(msg, isErr)
}
