package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nilsjohansson/phaserun/internal/config"
)

// statusFlags holds the flag values for the status command.
type statusFlags struct {
	JSON bool
}

// statusPhaseOutput is the JSON output shape for a single declared phase.
type statusPhaseOutput struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	StopStatus string `json:"stop_status,omitempty"`
}

// statusOutput is the top-level JSON output shape for the status command.
type statusOutput struct {
	JobFile string              `json:"job_file"`
	Name    string              `json:"name"`
	Phases  []statusPhaseOutput `json:"phases"`
	Parsers []string            `json:"parsers"`
}

// newStatusCmd creates the "phaserun status" command.
//
// A run's live progress is not persisted anywhere (cross-process state is
// explicitly out of scope), so this command previews what a `phaserun run`
// of the current job would do -- the phase list in declared order and the
// output parsers that will be wired into the tracker -- rather than
// reporting on an in-flight or past run.
func newStatusCmd() *cobra.Command {
	var flags statusFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Preview the phase list a job would run",
		Long: `Display the ordered phase list and output parsers a job.toml declares.

This is a static preview, not a live execution status: phaserun does not
persist run state across processes, so there is nothing to report on
between runs.`,
		Example: `  # Preview the job discovered from the current directory
  phaserun status

  # Preview a specific job file
  phaserun --job ./jobs/smoke.toml status

  # Structured JSON output
  phaserun status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Output structured JSON to stdout")

	return cmd
}

func init() {
	rootCmd.AddCommand(newStatusCmd())
}

func runStatus(cmd *cobra.Command, flags statusFlags) error {
	job, path, _, err := loadJob()
	if err != nil {
		return fmt.Errorf("loading job: %w", err)
	}

	if flags.JSON {
		return renderStatusJSON(cmd, path, job)
	}

	out := cmd.OutOrStdout()
	title := fmt.Sprintf("Job: %s", job.Name)
	fmt.Fprintln(out, lipgloss.NewStyle().Bold(true).Render(title))
	fmt.Fprintln(out, strings.Repeat("=", len(title)))
	fmt.Fprintf(out, "File: %s\n\n", path)

	if len(job.Phase) == 0 {
		fmt.Fprintln(out, "(no phases declared; the run would only visit Init and Terminal)")
	} else {
		for i, ps := range job.Phase {
			line := fmt.Sprintf("  %d. [%s] %s (id=%s)", i+1, ps.Kind, ps.Name, ps.ID)
			if ps.StopStatus != "" {
				line += fmt.Sprintf(" stop_status=%s", ps.StopStatus)
			}
			fmt.Fprintln(out, line)
		}
	}

	fmt.Fprintln(out)
	if len(job.Output.Parsers) == 0 {
		fmt.Fprintln(out, "Output parsers: none (lines will not be reconciled into the tracker)")
	} else {
		fmt.Fprintf(out, "Output parsers: %s\n", strings.Join(job.Output.Parsers, ", "))
	}

	return nil
}

func renderStatusJSON(cmd *cobra.Command, path string, job *config.Job) error {
	phases := make([]statusPhaseOutput, 0, len(job.Phase))
	for _, ps := range job.Phase {
		phases = append(phases, statusPhaseOutput{
			ID: ps.ID, Kind: ps.Kind, Name: ps.Name, StopStatus: ps.StopStatus,
		})
	}
	out := statusOutput{
		JobFile: path,
		Name:    job.Name,
		Phases:  phases,
		Parsers: job.Output.Parsers,
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
