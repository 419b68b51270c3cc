package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darianrosebrook/sterling/internal/ledger"
)

var opCmd = &cobra.Command{
	Use:     "op",
	Short:   "Commit and inspect raw operator deltas",
	GroupID: "ops",
}

var opDeltaFile string

var opCommitCmd = &cobra.Command{
	Use:   "commit <operator_id>",
	Short: "Commit a multi-entry ClaimDelta loaded from a JSON file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := readFile(opDeltaFile)
		if err != nil {
			fatal(err)
		}
		var delta ledger.ClaimDelta
		if err := json.Unmarshal(raw, &delta); err != nil {
			fatal(fmt.Errorf("cli: parsing delta file: %w", err))
		}
		op, err := env.OpCommit(args[0], nil, delta, nil)
		if err != nil {
			fatal(err)
		}
		render(op, func() { fmt.Printf("committed op %s (%s)\n", op.OpID, op.ContentHash) })
	},
}

var opShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List every committed SemanticOp",
	Run: func(cmd *cobra.Command, args []string) {
		rows, err := env.OpList()
		if err != nil {
			fatal(err)
		}
		render(rows, func() {
			for _, op := range rows {
				fmt.Printf("%s  operator=%s  hash=%s\n", op.OpID, op.OperatorID, op.ContentHash)
			}
		})
	},
}

func init() {
	opCommitCmd.Flags().StringVar(&opDeltaFile, "delta", "", "path to a JSON-encoded ledger.ClaimDelta (required)")
	_ = opCommitCmd.MarkFlagRequired("delta")
	opCmd.AddCommand(opCommitCmd, opShowCmd)
}
