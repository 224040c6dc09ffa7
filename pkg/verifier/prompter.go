package verifier

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// ReaderPrompter asks for replacements on a line-oriented terminal.
type ReaderPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewReaderPrompter creates a prompter reading answers from in and writing
// questions to out.
func NewReaderPrompter(in io.Reader, out io.Writer) *ReaderPrompter {
	return &ReaderPrompter{in: bufio.NewReader(in), out: out}
}

// Prompt prints the unknown token with the valid choices and reads one line.
func (p *ReaderPrompter) Prompt(ctx context.Context, kind TokenKind, wrong string, candidates []string) (string, error) {
	fmt.Fprintf(p.out, "%s %q is not defined.\n", kind, wrong)
	fmt.Fprintf(p.out, "Valid values: %s\n", strings.Join(candidates, ", "))
	fmt.Fprint(p.out, "Replacement: ")

	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read replacement: %w", err)
	}
	return strings.TrimSpace(line), nil
}
