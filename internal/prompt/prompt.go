// Package prompt runs practice sessions over a plain line-oriented terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	// ErrClosed is returned once the input reaches EOF.
	ErrClosed = errors.New("input closed")
	// ErrTimeout is returned when no line arrives before the wait expires.
	ErrTimeout = errors.New("no answer before deadline")
)

// Prompter reads answers line by line from a background reader.
type Prompter struct {
	out   io.Writer
	lines chan string
	errc  chan error
	done  chan struct{}
	once  sync.Once

	closed bool
	err    error
}

// New starts reading lines from in. Prompts are written to out.
func New(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		out:   out,
		lines: make(chan string, 16),
		errc:  make(chan error, 1),
		done:  make(chan struct{}),
	}
	go p.read(in)
	return p
}

func (p *Prompter) read(in io.Reader) {
	defer close(p.lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case p.lines <- scanner.Text():
		case <-p.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		p.errc <- err
	}
}

// Close stops delivering lines. A reader blocked on in exits at its next line.
func (p *Prompter) Close() {
	p.once.Do(func() { close(p.done) })
}

// Printf writes to the prompter's output.
func (p *Prompter) Printf(format string, args ...any) {
	// Best-effort write to the terminal.
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Drain discards lines typed while no question was open.
func (p *Prompter) Drain() int {
	n := 0
	for {
		select {
		case _, ok := <-p.lines:
			if !ok {
				p.markClosed()
				return n
			}
			n++
		default:
			return n
		}
	}
}

// Ask shows question and waits for one line. A wait of zero waits indefinitely.
func (p *Prompter) Ask(ctx context.Context, question string, wait time.Duration) (string, error) {
	if p.closed {
		return "", p.closedErr()
	}
	p.Printf("%s ", question)

	var deadline <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case line, ok := <-p.lines:
		if !ok {
			p.markClosed()
			return "", p.closedErr()
		}
		return line, nil
	case <-deadline:
		p.Printf("\n")
		return "", ErrTimeout
	case <-ctx.Done():
		p.Printf("\n")
		return "", ctx.Err()
	}
}

func (p *Prompter) markClosed() {
	p.closed = true
	select {
	case err := <-p.errc:
		p.err = err
	default:
	}
}

func (p *Prompter) closedErr() error {
	if p.err != nil {
		return fmt.Errorf("failed to read input: %w", p.err)
	}
	return ErrClosed
}
