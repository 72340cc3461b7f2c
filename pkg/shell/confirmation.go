package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// Prompter asks the user to confirm a destructive command.
type Prompter interface {
	// Confirm shows message and reports whether the user answered yes.
	Confirm(message string) (bool, error)
}

// isYes accepts "y" and "yes" in any case. Everything else, including an
// empty answer, means no.
func isYes(answer string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// ReadlinePrompter asks through the shell's readline instance so the
// terminal stays in the mode readline expects.
type ReadlinePrompter struct {
	rl *readline.Instance
}

// Confirm implements Prompter.
func (p *ReadlinePrompter) Confirm(message string) (bool, error) {
	p.rl.SetPrompt(message + " [y/N]: ")
	defer p.rl.SetPrompt(prompt)

	answer, err := p.rl.Readline()
	if err == readline.ErrInterrupt || err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return isYes(answer), nil
}

// IOPrompter reads answers line by line from a reader.
type IOPrompter struct {
	scanner *bufio.Scanner
	writer  io.Writer
}

// NewIOPrompter creates a prompter over r and w.
func NewIOPrompter(r io.Reader, w io.Writer) *IOPrompter {
	return &IOPrompter{scanner: bufio.NewScanner(r), writer: w}
}

// Confirm implements Prompter. EOF counts as no.
func (p *IOPrompter) Confirm(message string) (bool, error) {
	fmt.Fprintf(p.writer, "%s [y/N]: ", message)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return false, fmt.Errorf("failed to read confirmation: %w", err)
		}
		return false, nil
	}
	return isYes(p.scanner.Text()), nil
}

// MockPrompter answers every prompt with Response, or fails with Error.
type MockPrompter struct {
	Response bool
	Error    error
	Prompts  []string
}

// NewMockPrompter creates a MockPrompter that answers response.
func NewMockPrompter(response bool) *MockPrompter {
	return &MockPrompter{Response: response}
}

// Confirm implements Prompter.
func (m *MockPrompter) Confirm(message string) (bool, error) {
	m.Prompts = append(m.Prompts, message)
	if m.Error != nil {
		return false, m.Error
	}
	return m.Response, nil
}

var (
	_ Prompter = (*ReadlinePrompter)(nil)
	_ Prompter = (*IOPrompter)(nil)
	_ Prompter = (*MockPrompter)(nil)
)
