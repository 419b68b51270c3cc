package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var failureCmd = &cobra.Command{
	Use:     "failure",
	Short:   "Inspect recorded failure witnesses",
	GroupID: "ops",
}

var failureShowCmd = &cobra.Command{
	Use:   "show <record_id>",
	Short: "Show a single witness record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		w, err := env.FailureShow(args[0])
		if err != nil {
			fatal(err)
		}
		render(w, func() {
			fmt.Printf("%s  type=%s  gate=%s  verdict=%s\n", w.RecordID, w.FailureType, w.GateID, w.Verdict)
		})
	},
}

var failureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every distinct witness recorded",
	Run: func(cmd *cobra.Command, args []string) {
		ws, err := env.FailureList()
		if err != nil {
			fatal(err)
		}
		render(ws, func() {
			for _, w := range ws {
				fmt.Printf("%s  type=%s  gate=%s  verdict=%s\n", w.RecordID, w.FailureType, w.GateID, w.Verdict)
			}
		})
	},
}

func init() {
	failureCmd.AddCommand(failureShowCmd, failureListCmd)
}
