package prompter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the operator before destructive or first-run steps.
type Prompter interface {
	Confirm(question string) (bool, error)
	Prompt(question, def string) (string, error)
}

// TextPrompter reads answers line by line. A closed input counts as an empty
// answer, so unattended runs decline instead of failing.
type TextPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *TextPrompter {
	return &TextPrompter{in: bufio.NewReader(in), out: out}
}

func (p *TextPrompter) Confirm(q string) (bool, error) {
	resp, err := p.ask(fmt.Sprintf("%s [y/N]: ", q))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(resp) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Prompt returns def when the answer is empty.
func (p *TextPrompter) Prompt(q, def string) (string, error) {
	label := q
	if def != "" {
		label = fmt.Sprintf("%s [%s]", q, def)
	}
	resp, err := p.ask(label + ": ")
	if err != nil {
		return "", err
	}
	if resp == "" {
		return def, nil
	}
	return resp, nil
}

func (p *TextPrompter) ask(label string) (string, error) {
	if _, err := io.WriteString(p.out, label); err != nil {
		return "", err
	}
	resp, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}
