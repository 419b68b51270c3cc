package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/darianrosebrook/sterling/internal/conflict"
	"github.com/darianrosebrook/sterling/internal/packet"
)

var (
	conflictStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	schemaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	salienceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func styled(s lipgloss.Style, text string) string {
	if !ShouldUseColor() {
		return text
	}
	return s.Render(text)
}

// RenderConflictSet formats one conflict.Set as a single human-readable
// line, used by `sterling conflict list`/`show` non-JSON output.
func RenderConflictSet(set *conflict.Set) string {
	reason := styled(conflictStyle, string(set.ConflictReason))
	schema := styled(schemaStyle, set.SchemaID)
	sigs := strings.Join(set.ClaimSignatures, ", ")
	return fmt.Sprintf("%s  %s  [%s]  %s", set.ConflictID, schema, reason, sigs)
}

// RenderSlice formats one packet.Slice as a single human-readable line,
// used by `sterling packet assemble` non-JSON output.
func RenderSlice(s packet.Slice) string {
	schema := styled(schemaStyle, s.SchemaID)
	salience := styled(salienceStyle, fmt.Sprintf("%.2f", s.Salience))
	rationale := styled(dimStyle, s.InclusionRationale)
	return fmt.Sprintf("%s  %s  salience=%s  %s", s.Signature, schema, salience, rationale)
}
