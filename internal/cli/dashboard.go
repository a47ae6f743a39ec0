package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nilsjohansson/phaserun/internal/buildinfo"
	"github.com/nilsjohansson/phaserun/internal/config"
	"github.com/nilsjohansson/phaserun/internal/demophase"
	"github.com/nilsjohansson/phaserun/internal/lifecycle"
	"github.com/nilsjohansson/phaserun/internal/logging"
	"github.com/nilsjohansson/phaserun/internal/outputtask"
	"github.com/nilsjohansson/phaserun/internal/phaser"
	"github.com/nilsjohansson/phaserun/internal/tracker"
	"github.com/nilsjohansson/phaserun/internal/tui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Run a job with a live TUI dashboard",
	Long: `Run the configured job the same way "phaserun run" does, but drive a
full-screen dashboard off its transition and output hooks instead of
printing to stdout: a phase panel showing declared phases and the current
one, and a scrolling event log. Press q or ctrl+c to quit.`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	if flagDryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "Would launch TUI dashboard (dry-run mode)")
		return nil
	}

	job, path, _, err := loadJob()
	if err != nil {
		return fmt.Errorf("loading job: %w", err)
	}
	if result := config.Validate(job); result.HasErrors() {
		return fmt.Errorf("%s: %d validation error(s)", path, len(result.Errors()))
	}

	phases, err := demophase.BuildAll(job.Phase)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	tr := tracker.New()
	parsers := make([]outputtask.Parser, 0, len(job.Output.Parsers))
	for _, name := range job.Output.Parsers {
		p, ok := outputtask.ParserByName(name)
		if !ok {
			return fmt.Errorf("%s: unrecognized parser %q", path, name)
		}
		parsers = append(parsers, p)
	}
	acc := outputtask.New(tr, parsers)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	transitions := make(chan tui.TransitionMsg, 64)
	outputs := make(chan tui.OutputMsg, 256)
	snapshots := make(chan tui.SnapshotMsg, 8)
	done := make(chan tui.DoneMsg, 1)

	logger := logging.New(job.Name)
	ph, err := phaser.New(phases,
		phaser.WithLogger(logger),
		phaser.WithOutputHook(func(info lifecycle.PhaseInfo, line string, isErr bool) {
			acc.NewOutput(line, isErr)
			outputs <- tui.OutputMsg{Info: info, Line: line, IsErr: isErr}
		}),
		phaser.WithTransitionHook(func(previous, current *lifecycle.PhaseRun, phaseCount int) {
			transitions <- tui.TransitionMsg{Previous: previous, Current: current, PhaseCount: phaseCount}
		}),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := ph.Prime(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	runCtx, runCancel := context.WithCancel(ctx)
	runDone := make(chan struct{})
	go func() {
		runErr := ph.Run(runCtx, tr)
		info := ph.RunInfo()
		done <- tui.DoneMsg{Termination: info.Termination, Err: runErr}
		close(runDone)
		close(transitions)
		close(outputs)
		close(done)
	}()

	// Checksum-gated snapshot poller: the dashboard's phase panel follows
	// an authoritative RunInfo snapshot, pushed only when its Checksum
	// differs from the last tick's, so idle ticks cost one hash instead of
	// a redraw. The send is non-blocking; if the UI has already quit and
	// stopped draining, a stale snapshot is dropped rather than wedging
	// the poller.
	go func() {
		defer close(snapshots)
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		var last uint64
		emit := func() {
			info := ph.RunInfo()
			sum, err := info.Checksum()
			if err != nil || sum == last {
				return
			}
			last = sum
			select {
			case snapshots <- tui.SnapshotMsg{Run: info}:
			default:
			}
		}
		for {
			select {
			case <-runDone:
				emit()
				return
			case <-ticker.C:
				emit()
			}
		}
	}()

	phaseInfos := make([]lifecycle.PhaseInfo, 0, len(phases))
	for _, p := range phases {
		phaseInfos = append(phaseInfos, p.Info())
	}

	info := buildinfo.GetInfo()
	return tui.RunTUI(tui.AppConfig{
		Version:     info.Version,
		JobName:     job.Name,
		Phases:      phaseInfos,
		Transitions: transitions,
		Outputs:     outputs,
		Snapshots:   snapshots,
		Done:        done,
		Cancel: func() {
			ph.Stop()
			runCancel()
		},
	})
}
