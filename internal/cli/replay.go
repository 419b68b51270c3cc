package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/darianrosebrook/sterling/internal/replay"
	"github.com/darianrosebrook/sterling/internal/schema"
	"github.com/darianrosebrook/sterling/internal/witness"
)

var replaySchemaDir string

var replayCmd = &cobra.Command{
	Use:   "replay <ledger_file>",
	Short: "Verify a ledger file replays to identical content hashes (spec.md §6.6)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if replaySchemaDir == "" {
			fatal(fmt.Errorf("sterling replay: --schema-dir is required: replay needs the exact registry snapshot live when the ledger was written"))
		}
		schemaFiles, err := filepath.Glob(filepath.Join(replaySchemaDir, "*.yaml"))
		if err != nil {
			fatal(fmt.Errorf("sterling replay: globbing --schema-dir: %w", err))
		}

		var defs []schema.SchemaDef
		for _, f := range schemaFiles {
			def, err := readSchemaFile(f)
			if err != nil {
				fatal(err)
			}
			defs = append(defs, *def)
		}

		scratch, err := os.MkdirTemp("", "sterling-replay-witness-*")
		if err != nil {
			fatal(fmt.Errorf("sterling replay: %w", err))
		}
		defer os.RemoveAll(scratch)
		w, err := witness.Open(filepath.Join(scratch, "witness.jsonl"))
		if err != nil {
			fatal(fmt.Errorf("sterling replay: opening scratch witness store: %w", err))
		}
		defer w.Close()

		report, err := replay.Run(rootCtx, args[0], defs, w)
		if err != nil {
			fatal(err)
		}
		render(report, func() {
			if report.Deterministic() {
				fmt.Printf("deterministic: %d ops replayed, content hashes match\n", report.OpsReplayed)
				return
			}
			fmt.Printf("NOT deterministic: %d/%d ops mismatched\n", len(report.Mismatches), report.OpsReplayed)
			for _, m := range report.Mismatches {
				fmt.Printf("  %s (%s): recorded=%s replayed=%s\n", m.OpID, m.OperatorID, m.RecordedHash, m.ReplayedHash)
			}
		})
		if !report.Deterministic() {
			os.Exit(1)
		}
	},
}

func init() {
	replayCmd.Flags().StringVar(&replaySchemaDir, "schema-dir", "", "directory of *.yaml schema files matching the ledger's registry snapshot")
}
