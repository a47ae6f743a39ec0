// Package demophase supplies the concrete phase.Phase implementations the
// phaserun CLI needs to actually run something. Launching an external
// process is explicitly out of scope for this repository (process
// execution is an interface obligation only), so these phases are self
// contained: "sleep" advances after a configured duration, stopping early
// on request, and "emit" replays a configured line script through the
// run's output hook, optionally signalling a failed run partway through.
//
// A job's TOML [[phase]] entries select one of these by Kind; Build turns
// a config.PhaseSpec into the runtime phase.Phase.
package demophase
