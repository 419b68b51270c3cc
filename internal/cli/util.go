package cli

import (
	"fmt"
	"os"
)

// readFile reads path, wrapping the error with cli-specific context.
func readFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cli: reading %s: %w", path, err)
	}
	return raw, nil
}
