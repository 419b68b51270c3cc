// Package cli implements sterling's cobra command surface (spec.md §6),
// grounded in the teacher's cmd/bd: a persistent --json flag, a
// signal-aware root context, and a daemon-then-direct dispatch idiom
// (internal/rpc.TryConnect falling back to an in-process core) carried
// uniformly by every subcommand through the package-level Env.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/darianrosebrook/sterling/internal/governance"
)

var (
	jsonOutput bool
	socketPath string
	actor      string
	runIntent  string
	configDir  string

	rootCtx    context.Context
	rootCancel context.CancelFunc

	env *Env
)

// RootCmd is sterling's cobra root command.
var RootCmd = &cobra.Command{
	Use:   "sterling",
	Short: "sterling - content-addressed semantic ledger",
	Long: `sterling is a content-addressed semantic ledger: a typed schema
registry, a canonicalized claim store, an append-only operator ledger,
conflict detection, and bounded decision-packet assembly.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		intent := governance.RunIntent(runIntent)
		switch intent {
		case governance.DEV, governance.CERTIFYING, governance.PROMOTION, governance.REPLAY:
		default:
			return fmt.Errorf("sterling: unknown --run-intent %q", runIntent)
		}

		e, err := NewEnv(rootCtx, configDir, socketPath, actor, intent)
		if err != nil {
			return err
		}
		env = e
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if env != nil {
			env.Close()
		}
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output machine-readable JSON")
	RootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "sterlingd socket path (default: config socket)")
	RootCmd.PersistentFlags().StringVar(&actor, "actor", "", "actor name recorded on ops (default: $STERLING_ACTOR or $USER)")
	RootCmd.PersistentFlags().StringVar(&runIntent, "run-intent", "DEV", "governance run intent: DEV|CERTIFYING|PROMOTION|REPLAY")
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding sterling.yaml/sterling.toml")

	RootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core:"},
		&cobra.Group{ID: "ops", Title: "Operations:"},
	)

	RootCmd.AddCommand(schemaCmd, claimCmd, opCmd, conflictCmd, packetCmd, failureCmd, replayCmd, doctorCmd)
}

// Execute runs the root command; main.go's sole responsibility is
// calling this and exiting nonzero on error.
func Execute() error {
	return RootCmd.Execute()
}

// fatal prints err the teacher's way — JSON to stdout if --json is set,
// plain text to stderr otherwise — then exits 1.
func fatal(err error) {
	if jsonOutput {
		outputJSON(map[string]string{"error": err.Error()})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
