// Package cli holds the terminal front-ends of the chatbot command.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Chatter answers a chat message for a session.
type Chatter interface {
	HandleMessage(ctx context.Context, sessionID, message string) (string, error)
}

// ContentRenderer transforms an answer before it is printed, e.g. markdown to ANSI.
type ContentRenderer func(string) (string, error)

// Runner is an interactive chat loop over arbitrary IO, so it can be driven by tests.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// Run reads one message per line and prints the answer until EOF, "exit" or
// "quit", or until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, chat Chatter, sessionID string) error {
	if r.Input == nil {
		return errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return errors.New("output writer must be set (use os.Stdout)")
	}

	lines := bufio.NewScanner(NewInterruptibleReader(r.Input, ctx.Done()))
	if !r.Headless {
		r.system("Session '%s' active. Type 'exit' to quit.", sessionID)
	}

	for {
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		if !lines.Scan() {
			if err := lines.Err(); err != nil && !isInterrupted(err) {
				return fmt.Errorf("input error: %w", err)
			}
			break
		}

		input := strings.TrimSpace(lines.Text())
		if input == "exit" || input == "quit" {
			break
		}
		if input == "" {
			continue
		}

		answer, err := chat.HandleMessage(ctx, sessionID, input)
		if err != nil {
			if isInterrupted(err) {
				break
			}
			return err
		}
		if r.Renderer != nil {
			if rendered, err := r.Renderer(answer); err == nil {
				answer = rendered
			}
		}
		fmt.Fprintln(r.Output, strings.TrimRight(answer, "\n"))
	}

	if !r.Headless {
		fmt.Fprintln(r.Output, "Bye!")
	}
	return nil
}

func (r *Runner) system(format string, args ...any) {
	fmt.Fprintf(r.Output, ">>> %s\n", fmt.Sprintf(format, args...))
}

var errInterrupted = errors.New("interrupted")

// InterruptibleReader wraps an io.Reader (like os.Stdin) and checks for a cancellation signal.
type InterruptibleReader struct {
	base   io.Reader
	cancel <-chan struct{}
}

func NewInterruptibleReader(base io.Reader, cancel <-chan struct{}) *InterruptibleReader {
	return &InterruptibleReader{
		base:   base,
		cancel: cancel,
	}
}

func (r *InterruptibleReader) Read(p []byte) (n int, err error) {
	// Check before blocking
	select {
	case <-r.cancel:
		return 0, errInterrupted
	default:
	}

	// Read (This blocks!)
	n, err = r.base.Read(p)

	// Check after returning
	select {
	case <-r.cancel:
		return 0, errInterrupted
	default:
	}
	return n, err
}

func isInterrupted(err error) bool {
	return errors.Is(err, errInterrupted) || errors.Is(err, context.Canceled)
}
