package ui

import (
	"strconv"
	"strings"
)

// TruncateSimple shortens s to at most maxLen runes, appending "..." when
// truncated. maxLen <= 3 yields only the ellipsis.
func TruncateSimple(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}

// ShouldTruncate reports whether text exceeds maxLines lines or maxChars
// bytes. A zero bound is treated as unbounded for that dimension.
func ShouldTruncate(text string, maxLines, maxChars int) bool {
	if text == "" {
		return false
	}
	if maxChars > 0 && len(text) > maxChars {
		return true
	}
	if maxLines > 0 {
		if strings.Count(text, "\n")+1 > maxLines {
			return true
		}
	}
	return false
}

// TruncateLines keeps the first and last contextLines of text, replacing
// the hidden middle with a "... N lines hidden ..." marker, when text
// exceeds maxLines.
func TruncateLines(text string, maxLines, contextLines int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	if contextLines*2 >= len(lines) {
		return text
	}
	head := lines[:contextLines]
	tail := lines[len(lines)-contextLines:]
	hidden := len(lines) - 2*contextLines

	var b strings.Builder
	b.WriteString(strings.Join(head, "\n"))
	b.WriteString("\n... ")
	b.WriteString(strconv.Itoa(hidden))
	b.WriteString(" lines hidden ...\n")
	b.WriteString(strings.Join(tail, "\n"))
	return b.String()
}

// WrapText wraps text to maxWidth columns, preserving existing newlines
// as hard line breaks.
func WrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}
	paragraphs := strings.Split(text, "\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		out = append(out, wrapLine(p, maxWidth))
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, maxWidth int) string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return line
	}
	var b strings.Builder
	cur := 0
	for i, w := range words {
		if cur > 0 && cur+1+len(w) > maxWidth {
			b.WriteString("\n")
			cur = 0
		} else if i > 0 {
			b.WriteString(" ")
			cur++
		}
		b.WriteString(w)
		cur += len(w)
	}
	return b.String()
}
