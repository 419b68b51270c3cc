package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/darianrosebrook/sterling/internal/packet"
	"github.com/darianrosebrook/sterling/internal/ui"
)

var packetCmd = &cobra.Command{
	Use:     "packet",
	Short:   "Assemble decision packets",
	GroupID: "ops",
}

var (
	packetSchemaIDs string
	packetAllowMeta bool
	packetStrict    bool
	packetWindow    string
	packetMaxClaims int
	packetMaxOps    int
	packetMaxMs     int
)

var packetAssembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble one bounded decision packet",
	Run: func(cmd *cobra.Command, args []string) {
		var schemaIDs []string
		if packetSchemaIDs != "" {
			for _, s := range strings.Split(packetSchemaIDs, ",") {
				schemaIDs = append(schemaIDs, strings.TrimSpace(s))
			}
		}
		task := packet.TaskSpec{SchemaIDs: schemaIDs, AllowMeta: packetAllowMeta, Strict: packetStrict}
		if packetWindow != "" {
			scope, err := parseWindow(packetWindow)
			if err != nil {
				fatal(err)
			}
			task.Window = scope
		}
		budget := packet.PacketBudget{
			MaxClaims:         packetMaxClaims,
			MaxOpsFetched:     packetMaxOps,
			MaxAssemblyTimeMs: packetMaxMs,
		}

		p, f, err := env.PacketAssemble(task, budget)
		if err != nil {
			fatal(err)
		}
		if f != nil {
			render(f, func() {
				fmt.Printf("CERTIFIED FAILURE %s: %s (%s)\n", f.FailureID, f.FailureReason, f.FailureSeverity)
				fmt.Println(f.Explanation)
			})
			return
		}
		render(p, func() {
			fmt.Printf("packet %s  slices=%d  conflicts=%d\n", p.PacketID, len(p.Slices), len(p.Conflicts))
			for _, s := range p.Slices {
				fmt.Println(ui.RenderSlice(s))
			}
		})
	},
}

func init() {
	packetAssembleCmd.Flags().StringVar(&packetSchemaIDs, "schemas", "", "comma-separated schema_ids to assemble over")
	packetAssembleCmd.Flags().BoolVar(&packetAllowMeta, "allow-meta", false, "include META-kind claims")
	packetAssembleCmd.Flags().BoolVar(&packetStrict, "strict", false, "return a certified failure instead of an empty packet when no claim matches")
	packetAssembleCmd.Flags().StringVar(&packetWindow, "window", "", "natural-language validity window, e.g. \"last 30 days\"")
	packetAssembleCmd.Flags().IntVar(&packetMaxClaims, "max-claims", 200, "packet budget: max claims included")
	packetAssembleCmd.Flags().IntVar(&packetMaxOps, "max-ops-fetched", 2000, "packet budget: max ops scanned")
	packetAssembleCmd.Flags().IntVar(&packetMaxMs, "max-assembly-ms", 5000, "packet budget: max assembly wall time")
	packetCmd.AddCommand(packetAssembleCmd)
}
