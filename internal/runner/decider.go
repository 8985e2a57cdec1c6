package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

type Decision int

const (
	Resume Decision = iota
	Terminate
)

func (d Decision) String() string {
	if d == Resume {
		return "resume"
	}
	return "terminate"
}

func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "resume":
		return Resume, nil
	case "terminate":
		return Terminate, nil
	}
	return Terminate, fmt.Errorf("unknown decision %q", s)
}

// Decider is asked what to do when a run loses connectivity.
type Decider interface {
	Decide(ctx context.Context, url string, cause error) Decision
}

// FixedDecider always answers the same way, for unattended runs.
type FixedDecider Decision

func (f FixedDecider) Decide(context.Context, string, error) Decision {
	return Decision(f)
}

// PromptDecider asks an operator on a terminal. "y" resumes; any other
// answer, end of input or a cancelled context terminates. One goroutine
// owns the input for the decider's lifetime, so a prompt abandoned on
// cancellation never leaves a second reader behind.
type PromptDecider struct {
	in  *bufio.Reader
	out io.Writer

	once  sync.Once
	lines chan string
}

func NewPromptDecider(in io.Reader, out io.Writer) *PromptDecider {
	return &PromptDecider{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan string),
	}
}

// readLines feeds answers to Decide until the input ends.
func (p *PromptDecider) readLines() {
	defer close(p.lines)
	for {
		line, err := p.in.ReadString('\n')
		if line != "" {
			p.lines <- line
		}
		if err != nil {
			return
		}
	}
}

func (p *PromptDecider) Decide(ctx context.Context, url string, cause error) Decision {
	fmt.Fprintf(p.out, "\nNetwork problem while processing %s: %v\n", url, cause)
	fmt.Fprint(p.out, "Check the connection. Resume scraping? (y/n): ")

	p.once.Do(func() { go p.readLines() })

	select {
	case <-ctx.Done():
		return Terminate
	case line, ok := <-p.lines:
		if ok && strings.EqualFold(strings.TrimSpace(line), "y") {
			return Resume
		}
		return Terminate
	}
}
