// Command sterling is the operator-facing CLI: schema management,
// claim commits, conflict inspection, decision-packet assembly, and
// replay verification, against either a running sterlingd daemon or an
// in-process core (internal/cli).
package main

import (
	"fmt"
	"os"

	"github.com/darianrosebrook/sterling/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
