package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darianrosebrook/sterling/internal/ui"
)

var conflictCmd = &cobra.Command{
	Use:     "conflict",
	Short:   "List and inspect committed conflicts",
	GroupID: "ops",
}

var conflictListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every conflict set, live or retired",
	Run: func(cmd *cobra.Command, args []string) {
		sets, err := env.ConflictList()
		if err != nil {
			fatal(err)
		}
		render(sets, func() {
			for _, s := range sets {
				fmt.Println(ui.RenderConflictSet(s))
			}
		})
	},
}

var conflictShowCmd = &cobra.Command{
	Use:   "show <signature>",
	Short: "Show every live conflict touching a claim signature",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sets, err := env.ConflictShow(args[0])
		if err != nil {
			fatal(err)
		}
		render(sets, func() {
			if len(sets) == 0 {
				fmt.Println("no conflicts touching", args[0])
				return
			}
			for _, s := range sets {
				fmt.Println(ui.RenderConflictSet(s))
			}
		})
	},
}

func init() {
	conflictCmd.AddCommand(conflictListCmd, conflictShowCmd)
}
