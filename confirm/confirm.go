// Package confirm gates remote mutations behind an explicit affirmative answer.
package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	hverrors "github.com/hibernate/hvrelease/errors"
)

// Answer is the only reply accepted as confirmation.
const Answer = "y"

// Confirmer asks whether an action may proceed.
type Confirmer interface {
	// Confirm returns nil when the action was confirmed and an ABORTED
	// error otherwise.
	Confirm(ctx context.Context, question string) error
}

// Func adapts a function to the Confirmer interface.
type Func func(ctx context.Context, question string) error

// Confirm calls f.
func (f Func) Confirm(ctx context.Context, question string) error {
	return f(ctx, question)
}

// Prompt asks on Out and reads the reply from In.
type Prompt struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

// NewPrompt creates a prompt reading replies from in and writing questions to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{In: in, Out: out}
}

// Confirm prints the question and waits for one line of input. Only "y"
// confirms; anything else, including end of input, aborts.
func (p *Prompt) Confirm(ctx context.Context, question string) error {
	if err := ctx.Err(); err != nil {
		return hverrors.Wrap(err, hverrors.CodeAborted, "confirmation cancelled")
	}
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}

	if _, err := fmt.Fprintf(p.Out, "%s (y/n, only lowercase y will confirm) ", question); err != nil {
		return hverrors.Wrap(err, hverrors.CodeInternal, "failed to write prompt")
	}

	line, err := p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return hverrors.Wrap(err, hverrors.CodeAborted, "failed to read confirmation")
	}

	if reply := strings.TrimSpace(line); reply != Answer {
		return hverrors.Newf(hverrors.CodeAborted, "aborted: %q was not confirmed", question).
			WithContext("reply", reply)
	}
	return nil
}

// Always confirms every question without asking. The CLI uses it for --yes.
type Always struct{}

// Confirm implements Confirmer.
func (Always) Confirm(context.Context, string) error { return nil }

// Never declines every question.
type Never struct{}

// Confirm implements Confirmer.
func (Never) Confirm(_ context.Context, question string) error {
	return hverrors.Newf(hverrors.CodeAborted, "aborted: %q was not confirmed", question)
}
