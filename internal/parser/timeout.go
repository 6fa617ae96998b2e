package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

type timeoutParser struct {
	next    Parser
	timeout time.Duration
}

// WithTimeout bounds every Parse call. Extraction libraries do not observe
// ctx, so a timed-out parse keeps running in the background and its result
// is discarded.
func WithTimeout(next Parser, timeout time.Duration) Parser {
	if timeout <= 0 {
		return next
	}
	return &timeoutParser{next: next, timeout: timeout}
}

type parseOutcome struct {
	result *Result
	err    error
}

func (p *timeoutParser) Parse(ctx context.Context, path, mimeType string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan parseOutcome, 1)
	go func() {
		res, err := p.next.Parse(ctx, path, mimeType)
		done <- parseOutcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, &ParseError{
			Path:   path,
			Reason: fmt.Sprintf("parsing %s timed out after %s", filepath.Base(path), p.timeout),
			Err:    ctx.Err(),
		}
	}
}
