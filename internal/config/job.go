package config

// Job is the top-level configuration structure mapping to a job TOML file.
// It is the config-driven description of a Phaser run: a name, an ordered
// phase list (by registered phase kind), and the output-parser selection
// that builds the Output->Task accumulator feeding a run's task tracker.
type Job struct {
	Name   string      `toml:"name"`
	Phase  []PhaseSpec `toml:"phase"`
	Output OutputSpec  `toml:"output"`
}

// PhaseSpec describes one entry in a job's ordered phase list. Kind selects
// which registered phase constructor builds the runtime phase.Phase; the
// remaining fields are interpreted according to Kind (see
// internal/demophase for the kinds this repository registers).
type PhaseSpec struct {
	ID         string   `toml:"id"`
	Kind       string   `toml:"kind"`
	Name       string   `toml:"name"`
	StopStatus string   `toml:"stop_status"`
	Duration   string   `toml:"duration"` // kind "sleep": a time.ParseDuration string
	Lines      []string `toml:"lines"`    // kind "emit": output lines replayed through the run's output hook
	FailAt     int      `toml:"fail_at"`  // kind "emit": 1-based line index after which to signal failed-run (0 = never)
}

// OutputSpec selects the parser chain the CLI wires into an
// outputtask.Accumulator for a job's run, by name. Recognized names are
// "kv" and "logfmt" (see internal/outputtask); an empty list means no
// parsers are configured and all output lines are discarded unreconciled.
type OutputSpec struct {
	Parsers []string `toml:"parsers"`
}
