package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nilsjohansson/phaserun/internal/config"
)

// configCmd is the parent "config" namespace command. It has no action of its
// own -- it groups debug and validate subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Job configuration commands",
	Long:  "Inspect and validate a phaserun job.toml file.",
	// RunE shows help when invoked with no subcommand.
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// configDebugCmd implements "phaserun config debug": it prints the decoded
// job verbatim, including any TOML keys the Job struct did not recognize.
var configDebugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Show the decoded job definition",
	Long:  "Display the job.toml file as phaserun decoded it, flagging any unrecognized keys.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		job, path, meta, err := loadJob()
		if err != nil {
			return err
		}
		undecodedKeys := meta.Undecoded()
		undecoded := make([]string, len(undecodedKeys))
		for i, k := range undecodedKeys {
			undecoded[i] = k.String()
		}
		printJobDebug(cmd, path, job, undecoded)
		return nil
	},
}

// configValidateCmd implements "phaserun config validate".
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the job definition and report issues",
	Long:  "Check job.toml for errors (phase structure, kind-specific fields, parser names) and warnings.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		job, _, _, err := loadJob()
		if err != nil {
			return err
		}
		result := config.Validate(job)
		printValidationResult(cmd, result)
		if result.HasErrors() {
			return fmt.Errorf("job has %d error(s)", len(result.Errors()))
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configDebugCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

// ---- styles -----------------------------------------------------------

var (
	styleHeader   = lipgloss.NewStyle().Bold(true)
	styleSection  = lipgloss.NewStyle().Bold(true)
	styleErrorLbl = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)  // red
	styleWarnLbl  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true) // yellow
	styleSuccess  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))            // green
)

// printJobDebug writes the decoded job to cmd's output writer.
func printJobDebug(cmd *cobra.Command, path string, job *config.Job, undecoded []string) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, styleHeader.Render("Job Debug"))
	fmt.Fprintln(out, strings.Repeat("=", len("Job Debug")))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Job file: %s\n", path)
	fmt.Fprintf(out, "name = %q\n", job.Name)
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[phase]"))
	for i, ps := range job.Phase {
		fmt.Fprintf(out, "  [%d] id=%q kind=%q name=%q stop_status=%q\n", i, ps.ID, ps.Kind, ps.Name, ps.StopStatus)
		switch ps.Kind {
		case "sleep":
			fmt.Fprintf(out, "      duration=%q\n", ps.Duration)
		case "emit":
			fmt.Fprintf(out, "      lines=%d fail_at=%d\n", len(ps.Lines), ps.FailAt)
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[output]"))
	fmt.Fprintf(out, "  parsers=%v\n", job.Output.Parsers)

	if len(undecoded) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, styleWarnLbl.Render("Unrecognized keys:"))
		for _, k := range undecoded {
			fmt.Fprintf(out, "  %s\n", k)
		}
	}
}

// printValidationResult writes the formatted validation report to cmd's
// output writer.
func printValidationResult(cmd *cobra.Command, result *config.ValidationResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, styleHeader.Render("Job Validation"))
	fmt.Fprintln(out, strings.Repeat("=", len("Job Validation")))
	fmt.Fprintln(out)

	errs := result.Errors()
	warns := result.Warnings()

	if len(errs) == 0 && len(warns) == 0 {
		fmt.Fprintln(out, styleSuccess.Render("No issues found."))
		return
	}

	if len(errs) > 0 {
		fmt.Fprintln(out, styleErrorLbl.Render("Errors:"))
		for _, issue := range errs {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Field, issue.Message)
		}
		fmt.Fprintln(out)
	}

	if len(warns) > 0 {
		fmt.Fprintln(out, styleWarnLbl.Render("Warnings:"))
		for _, issue := range warns {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Field, issue.Message)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "%d error(s), %d warning(s)\n", len(errs), len(warns))
}
