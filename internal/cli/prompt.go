package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/klauern/treesync/internal/sync"
	"github.com/klauern/treesync/internal/ui"
)

// stdinIsTerminal reports whether questions can be asked on the console.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Prompter answers policy questions interactively. It implements sync.Decider.
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer

	// beforePrompt runs before each question, e.g. to clear a progress bar.
	beforePrompt func()
}

// NewPrompter creates a prompter reading answers from in and writing
// questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Decide asks q and waits for a valid answer.
func (p *Prompter) Decide(ctx context.Context, q sync.Question) (sync.Answer, error) {
	if err := ctx.Err(); err != nil {
		return sync.AnswerNo, err
	}
	if p.beforePrompt != nil {
		p.beforePrompt()
	}

	fmt.Fprintf(p.out, "%s %s\n", ui.Warning("?"), q)
	fmt.Fprint(p.out, "  [y]es, [n]o, [a]lways, ne[v]er, [q]uit: ")

	for {
		response, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || response == "") {
			return sync.AnswerNo, fmt.Errorf("failed to read input: %w", err)
		}

		if answer, ok := parseAnswer(response); ok {
			return answer, nil
		}
		if err == io.EOF {
			return sync.AnswerNo, fmt.Errorf("failed to read input: %w", err)
		}
		fmt.Fprint(p.out, "Invalid choice. Enter y, n, a, v or q: ")
	}
}

// parseAnswer maps console input to an answer. The empty answer is no.
func parseAnswer(s string) (sync.Answer, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n", "no":
		return sync.AnswerNo, true
	case "y", "yes":
		return sync.AnswerYes, true
	case "a", "all", "always":
		return sync.AnswerAlways, true
	case "v", "never":
		return sync.AnswerNever, true
	case "q", "quit":
		return sync.AnswerQuit, true
	default:
		return sync.AnswerNo, false
	}
}
