package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spherical/cropcare/internal/ui"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		line    string
		command string
		rest    string
	}{
		{"/ask When to sow wheat?", "/ask", "When to sow wheat?"},
		{"  /DOC   what disease is this?  ", "/doc", "what disease is this?"},
		{"/quit", "/quit", ""},
		{"Tomato leaves are yellow—cause?", "", "Tomato leaves are yellow—cause?"},
		{"/upload ./scans/field report.pdf", "/upload", "./scans/field report.pdf"},
	}
	for _, tt := range tests {
		command, rest := splitCommand(tt.line)
		assert.Equal(t, tt.command, command, tt.line)
		assert.Equal(t, tt.rest, rest, tt.line)
	}
}

func TestPrintStream(t *testing.T) {
	empty := make(chan string)
	close(empty)
	assert.False(t, <-printStream(ui.NewSpinner(msgThinking), empty))

	chunks := make(chan string, 2)
	chunks <- "Mulch "
	chunks <- "the beds."
	close(chunks)
	assert.True(t, <-printStream(ui.NewSpinner(msgThinking), chunks))
}
