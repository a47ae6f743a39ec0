package lifecycle

import "github.com/mitchellh/hashstructure/v2"

// Checksum returns a content hash of the Run snapshot. Observers that only
// need to detect whether a Run has changed since the last poll can compare
// checksums instead of deep-comparing the whole structure.
//
// The lifecycle's run history is hashed through PhaseRuns, since the
// backing slice is unexported and would otherwise not contribute.
func (r Run) Checksum() (uint64, error) {
	return hashstructure.Hash(struct {
		Phases      []PhaseInfo
		Runs        []PhaseRun
		Termination *TerminationInfo
	}{r.Phases, r.Lifecycle.PhaseRuns(), r.Termination}, hashstructure.FormatV2, nil)
}
