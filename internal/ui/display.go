package ui

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// Section displays a section header.
func Section(title string) {
	headerColor.Fprintf(os.Stdout, "\n%s\n", title)
	fmt.Fprintf(os.Stdout, "%s\n\n", strings.Repeat("=", utf8.RuneCountInString(title)))
}

// Box displays text in a box with borders.
func Box(title string, content string) {
	fmt.Fprint(os.Stdout, RenderBox(title, content))
}

// RenderBox returns content framed by a box. Widths are counted in runes so
// Indic scripts stay roughly aligned.
func RenderBox(title, content string) string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	width := utf8.RuneCountInString(title)
	for _, line := range lines {
		if n := utf8.RuneCountInString(line); n > width {
			width = n
		}
	}
	if width < 40 {
		width = 40
	}

	var b strings.Builder
	row := func(s string) {
		pad := width - utf8.RuneCountInString(s)
		fmt.Fprintf(&b, "│ %s%s │\n", s, strings.Repeat(" ", pad))
	}

	fmt.Fprintf(&b, "┌%s┐\n", strings.Repeat("─", width+2))
	if title != "" {
		row(title)
		fmt.Fprintf(&b, "├%s┤\n", strings.Repeat("─", width+2))
	}
	for _, line := range lines {
		row(line)
	}
	fmt.Fprintf(&b, "└%s┘\n", strings.Repeat("─", width+2))
	return b.String()
}

// FormatList formats a list of items as bullets.
func FormatList(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("  • %s\n", item))
	}
	return sb.String()
}

// KeyValue displays a key-value pair in a formatted way.
func KeyValue(key, value string) {
	fmt.Fprintf(os.Stdout, "  %s: %s\n", dimColor.Sprint(key), value)
}

// ChatLine prints one transcript entry.
func ChatLine(role, content string) {
	ChatPrefix(role)
	fmt.Fprintln(os.Stdout, content)
}

// ChatPrefix prints the speaker label of a transcript entry without a newline.
func ChatPrefix(role string) {
	if role == "user" {
		userColor.Fprint(os.Stdout, "you› ")
	} else {
		successColor.Fprint(os.Stdout, "cropcare› ")
	}
}
