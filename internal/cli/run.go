package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nilsjohansson/phaserun/internal/config"
	"github.com/nilsjohansson/phaserun/internal/demophase"
	"github.com/nilsjohansson/phaserun/internal/lifecycle"
	"github.com/nilsjohansson/phaserun/internal/logging"
	"github.com/nilsjohansson/phaserun/internal/outputtask"
	"github.com/nilsjohansson/phaserun/internal/phaser"
	"github.com/nilsjohansson/phaserun/internal/tracker"
)

// runFlags holds the flag values for the run command.
type runFlags struct {
	Glob string
}

var runCmd = &cobra.Command{
	Use:   "run [job-file...]",
	Short: "Run one or more jobs",
	Long: `Run a job: build its configured phase list, prime and drive a Phaser
through it, and reconcile its output into a task tracker.

With no arguments, the job file is the one found via --job or discovered by
walking up from the current directory. Multiple job files (given as
positional arguments, or discovered with --glob) run concurrently; the
command's exit code is non-zero if any job did not complete successfully.`,
	Example: `  # Run the job discovered from the current directory
  phaserun run

  # Run a specific job file
  phaserun run ./jobs/smoke.toml

  # Run every job file under jobs/
  phaserun run --glob 'jobs/**/*.toml'`,
	RunE: runRun,
}

var runFlagsValue runFlags

func init() {
	runCmd.Flags().StringVar(&runFlagsValue.Glob, "glob", "", "Discover job files under --dir with a doublestar glob pattern")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	paths, err := resolveJobPaths(args, runFlagsValue.Glob)
	if err != nil {
		return err
	}

	if flagDryRun {
		out := cmd.OutOrStdout()
		for _, path := range paths {
			fmt.Fprintf(out, "would run %s\n", path)
		}
		return nil
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	results := make([]*lifecycle.TerminationInfo, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			term, runErr := runOneJob(gctx, cmd, path)
			results[i] = term
			errs[i] = runErr
			return nil
		})
	}
	// errgroup.Wait's own error is unused: each job's outcome is tracked
	// independently in results/errs so one job's failure never cancels the
	// others' contexts (only an explicit signal does, via gctx).
	_ = g.Wait()

	failed := false
	for i, path := range paths {
		printJobSummary(cmd, path, results[i], errs[i])
		if errs[i] != nil || (results[i] != nil && results[i].Status != lifecycle.StatusCompleted) {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("one or more jobs did not complete successfully")
	}
	return nil
}

// resolveJobPaths decides which job files to run: explicit positional
// args, a --glob pattern rooted at --dir, or the single job discovered via
// --job / walking up from the current directory.
func resolveJobPaths(args []string, glob string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if glob != "" {
		dir := flagDir
		if dir == "" {
			dir = "."
		}
		matches, err := config.DiscoverJobFiles(dir, glob)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("glob %q matched no job files", glob)
		}
		return matches, nil
	}

	path := flagJob
	if path == "" {
		found, err := config.FindJobFile(".")
		if err != nil {
			return nil, fmt.Errorf("finding job file: %w", err)
		}
		if found == "" {
			return nil, fmt.Errorf("no %s found in this directory or any parent; pass --job or a job file argument", config.FileName)
		}
		path = found
	}
	return []string{path}, nil
}

// runOneJob loads, builds, and executes a single job file, returning its
// termination record.
func runOneJob(ctx context.Context, cmd *cobra.Command, path string) (*lifecycle.TerminationInfo, error) {
	job, _, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if result := config.Validate(job); result.HasErrors() {
		return nil, fmt.Errorf("%s: %d validation error(s)", path, len(result.Errors()))
	}

	phases, err := demophase.BuildAll(job.Phase)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	tr := tracker.New()
	parsers := make([]outputtask.Parser, 0, len(job.Output.Parsers))
	for _, name := range job.Output.Parsers {
		p, ok := outputtask.ParserByName(name)
		if !ok {
			return nil, fmt.Errorf("%s: unrecognized parser %q", path, name)
		}
		parsers = append(parsers, p)
	}
	acc := outputtask.New(tr, parsers)

	logger := logging.New(job.Name)
	out := cmd.OutOrStdout()

	ph, err := phaser.New(phases,
		phaser.WithLogger(logger),
		phaser.WithOutputHook(func(info lifecycle.PhaseInfo, line string, isErr bool) {
			acc.NewOutput(line, isErr)
			stream := "out"
			if isErr {
				stream = "err"
			}
			fmt.Fprintf(out, "[%s/%s] %s\n", job.Name, stream, line)
		}),
		phaser.WithTransitionHook(func(previous, current *lifecycle.PhaseRun, phaseCount int) {
			if current != nil {
				logger.Debug("phase transition", "phase", current.PhaseID, "state", current.RunState)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := ph.Prime(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	go func() {
		<-ctx.Done()
		ph.Stop()
	}()

	runErr := ph.Run(ctx, tr)
	info := ph.RunInfo()
	return info.Termination, runErr
}

func printJobSummary(cmd *cobra.Command, path string, term *lifecycle.TerminationInfo, runErr error) {
	out := cmd.OutOrStdout()
	if runErr != nil && term == nil {
		fmt.Fprintf(out, "%s: error: %v\n", path, runErr)
		return
	}
	status := lifecycle.StatusNone
	if term != nil {
		status = term.Status
	}
	fmt.Fprintf(out, "%s: %s\n", path, status)
	if term != nil && term.Failure != nil {
		fmt.Fprintf(out, "  fault: %s: %v\n", term.Failure.Reason, term.Failure.Detail)
	}
	if term != nil && term.Error != nil {
		fmt.Fprintf(out, "  error: %s: %s\n", term.Error.Category, term.Error.Message)
	}
}
