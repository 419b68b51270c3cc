package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/darianrosebrook/sterling/internal/claim"
	"github.com/darianrosebrook/sterling/internal/ledger"
)

var claimCmd = &cobra.Command{
	Use:     "claim",
	Short:   "Add, update, delete, or inspect claims",
	GroupID: "ops",
}

var (
	claimSchemaID string
	claimSlots    string
	claimQuals    string
	claimPolarity string
	claimModal    string
	claimStatus   string
	claimSupport  string
	claimValid    string // "--window", natural-language, e.g. "last 30 days"
	claimOperator string
)

func addClaimFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&claimSchemaID, "schema", "", "schema_id the claim is shaped by (required)")
	cmd.Flags().StringVar(&claimSlots, "slots", "{}", "JSON object of slot role -> value")
	cmd.Flags().StringVar(&claimQuals, "qualifiers", "", "JSON object of qualifier annotations")
	cmd.Flags().StringVar(&claimPolarity, "polarity", "pos", "pos|neg|unk")
	cmd.Flags().StringVar(&claimModal, "modal-scope", "ACTUAL", "ACTUAL|HYPOTHETICAL|COUNTERFACTUAL")
	cmd.Flags().StringVar(&claimStatus, "status", "asserted", "asserted|hypothesis")
	cmd.Flags().StringVar(&claimSupport, "support", "", "comma-separated evidence-atom IDs")
	cmd.Flags().StringVar(&claimValid, "window", "", "natural-language validity window, e.g. \"last 30 days\"")
	cmd.Flags().StringVar(&claimOperator, "operator-id", "cli", "operator_id recorded on the committing op")
	_ = cmd.MarkFlagRequired("schema")
}

func buildClaimInstance() (claim.ClaimInstance, error) {
	var slots map[string]any
	if err := json.Unmarshal([]byte(claimSlots), &slots); err != nil {
		return claim.ClaimInstance{}, fmt.Errorf("cli: parsing --slots: %w", err)
	}
	var quals map[string]any
	if claimQuals != "" {
		if err := json.Unmarshal([]byte(claimQuals), &quals); err != nil {
			return claim.ClaimInstance{}, fmt.Errorf("cli: parsing --qualifiers: %w", err)
		}
	}
	var support []string
	if claimSupport != "" {
		for _, s := range strings.Split(claimSupport, ",") {
			support = append(support, strings.TrimSpace(s))
		}
	}

	c := claim.ClaimInstance{
		SchemaID:        claimSchemaID,
		Slots:           slots,
		Qualifiers:      quals,
		Polarity:        claim.Polarity(claimPolarity),
		ModalScope:      claim.ModalScope(claimModal),
		EpistemicStatus: claim.EpistemicStatus(claimStatus),
		SupportSet:      support,
	}

	if claimValid != "" {
		scope, err := parseWindow(claimValid)
		if err != nil {
			return claim.ClaimInstance{}, err
		}
		c.TemporalScope = scope
	}
	return c, nil
}

var claimAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Commit a single Add claim delta",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := buildClaimInstance()
		if err != nil {
			fatal(err)
		}
		op, err := env.OpCommit(claimOperator, nil, ledger.ClaimDelta{Adds: []claim.ClaimInstance{c}}, c.SupportSet)
		if err != nil {
			fatal(err)
		}
		render(op, func() { fmt.Printf("committed op %s (%s)\n", op.OpID, op.ContentHash) })
	},
}

var claimUpdateCmd = &cobra.Command{
	Use:   "update <prior_signature>",
	Short: "Commit a single Update claim delta",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := buildClaimInstance()
		if err != nil {
			fatal(err)
		}
		delta := ledger.ClaimDelta{Updates: []ledger.UpdateEntry{{PriorSignature: args[0], Claim: c}}}
		op, err := env.OpCommit(claimOperator, nil, delta, c.SupportSet)
		if err != nil {
			fatal(err)
		}
		render(op, func() { fmt.Printf("committed op %s (%s)\n", op.OpID, op.ContentHash) })
	},
}

var claimDeleteCmd = &cobra.Command{
	Use:   "delete <signature>",
	Short: "Commit a single Delete claim delta (tombstone)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		delta := ledger.ClaimDelta{Deletes: []string{args[0]}}
		op, err := env.OpCommit(claimOperator, nil, delta, nil)
		if err != nil {
			fatal(err)
		}
		render(op, func() { fmt.Printf("committed op %s (%s)\n", op.OpID, op.ContentHash) })
	},
}

var claimGetCmd = &cobra.Command{
	Use:   "get <signature>",
	Short: "Show the claim row for a canonical signature",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		row, err := env.ClaimGet(args[0])
		if err != nil {
			fatal(err)
		}
		render(row, func() {
			fmt.Printf("%s  schema=%s  deleted=%v\n", args[0], row.Claim.SchemaID, row.Deleted)
		})
	},
}

var claimListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live claim rows, optionally filtered by schema",
	Run: func(cmd *cobra.Command, args []string) {
		rows, err := env.ClaimList(claimSchemaID)
		if err != nil {
			fatal(err)
		}
		render(rows, func() {
			for _, r := range rows {
				fmt.Printf("%s  schema=%s\n", r.Claim.CanonicalSignature, r.Claim.SchemaID)
			}
		})
	},
}

// parseWindow turns a natural-language window (e.g. "last 30 days") into
// a TemporalScope bounded at [resolved_time, unbounded], using
// olebedev/when the way the teacher's CLI flags resolve relative time
// windows before they reach storage.
func parseWindow(text string) (*claim.TemporalScope, error) {
	t, err := resolveRelativeTime(text)
	if err != nil {
		return nil, fmt.Errorf("cli: parsing --window %q: %w", text, err)
	}
	return &claim.TemporalScope{
		ValidFrom:   t.UTC().Format(time.RFC3339),
		Granularity: claim.GranularityDay,
	}, nil
}

func init() {
	for _, c := range []*cobra.Command{claimAddCmd, claimUpdateCmd} {
		addClaimFlags(c)
	}
	claimListCmd.Flags().StringVar(&claimSchemaID, "schema", "", "filter by schema_id")
	claimCmd.AddCommand(claimAddCmd, claimUpdateCmd, claimDeleteCmd, claimGetCmd, claimListCmd)
}
