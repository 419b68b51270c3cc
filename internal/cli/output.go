package cli

import (
	"encoding/json"
	"fmt"
	"os"
)

// outputJSON pretty-prints v to stdout, mirroring the teacher's
// autoflush.go outputJSON helper.
func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

// render prints v as JSON when --json is set, otherwise calls human for
// terminal-friendly output.
func render(v any, human func()) {
	if jsonOutput {
		outputJSON(v)
		return
	}
	human()
}
