package ui

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter reads answers from an input stream.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a prompter over in, echoing prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Prompt asks the user for input with a prompt message. io.EOF is returned
// once input is exhausted with nothing read.
func (p *Prompter) Prompt(message string) (string, error) {
	fmt.Fprintf(p.out, "%s ", message)
	input, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// PromptChoice asks the user to pick one of choices by number or exact text,
// returning its index.
func (p *Prompter) PromptChoice(message string, choices []string) (int, error) {
	for i, c := range choices {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, c)
	}
	for {
		input, err := p.Prompt(fmt.Sprintf("%s [1-%d]:", message, len(choices)))
		if err != nil {
			return -1, err
		}
		if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(choices) {
			return n - 1, nil
		}
		for i, c := range choices {
			if strings.EqualFold(input, c) {
				return i, nil
			}
		}
		fmt.Fprintf(p.out, "Please enter a number between 1 and %d.\n", len(choices))
	}
}
