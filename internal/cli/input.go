// Package cli holds the line-oriented console surface: prompts that read
// from a bufio.Reader and styled output.
package cli

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/amirk1998/stockkeeper/pkg/errors"
)

// readPassword and isTerminal are test seams for golang.org/x/term.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

type Prompter struct {
	reader *bufio.Reader
	out    io.Writer
	fd     int
}

// NewPrompter reads answers from in and writes prompts to out. Passwords
// are read without echo when in is a terminal.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	fd := -1
	if f, ok := in.(*os.File); ok {
		fd = int(f.Fd())
	}
	return &Prompter{reader: bufio.NewReader(in), out: out, fd: fd}
}

// Text prints prompt and reads a single trimmed line. If EOF occurs after
// some input was read, the partial line is returned.
func (p *Prompter) Text(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, prompt+": "); err != nil {
		return "", err
	}
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if stderrors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Ask re-prompts until check accepts the answer. Rejections are printed
// and do not end the loop; read errors do.
func (p *Prompter) Ask(prompt string, check func(string) error) (string, error) {
	for {
		answer, err := p.Text(prompt)
		if err != nil {
			return "", err
		}
		if err := check(answer); err != nil {
			fmt.Fprintf(p.out, "  %s\n", Message(err))
			continue
		}
		return answer, nil
	}
}

// Password reads a secret without echo. Off a terminal it falls back to a
// plain line read.
func (p *Prompter) Password(prompt string) (string, error) {
	if p.fd < 0 || !isTerminal(p.fd) {
		return p.Text(prompt)
	}

	if _, err := fmt.Fprint(p.out, prompt+": "); err != nil {
		return "", err
	}
	pw, err := readPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// Confirm asks a yes/no question. Only "y" and "yes" count as yes.
func (p *Prompter) Confirm(prompt string) (bool, error) {
	answer, err := p.Text(prompt + " (yes/no)")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Message returns the human part of err.
func Message(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
