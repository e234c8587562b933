package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PasswordPrompter reads a secret from the terminal without echoing it.
type PasswordPrompter interface {
	Run() (string, error)
}

type terminalPrompter struct {
	label  string
	stdin  *os.File
	stdout io.Writer
	read   func(fd int) ([]byte, error)
}

var _ PasswordPrompter = (*terminalPrompter)(nil)

func (p *terminalPrompter) Run() (string, error) {
	if _, err := fmt.Fprint(p.stdout, p.label, " "); err != nil {
		return "", fmt.Errorf("writing prompt label: %w", err)
	}

	secret, err := p.read(int(p.stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	if _, err = fmt.Fprintln(p.stdout); err != nil {
		return "", fmt.Errorf("writing newline: %w", err)
	}

	return strings.TrimSpace(string(secret)), nil
}

func NewDefaultPasswordPrompter(label string, stdin *os.File, stdout io.Writer) (*terminalPrompter, error) {
	if stdin == nil {
		return nil, errors.New("stdin cannot be nil")
	}
	if stdout == nil {
		return nil, errors.New("stdout cannot be nil")
	}

	label = strings.TrimSpace(label)
	if label == "" {
		return nil, errors.New("prompt label cannot be empty")
	}

	return &terminalPrompter{label: label, stdin: stdin, stdout: stdout, read: term.ReadPassword}, nil
}
