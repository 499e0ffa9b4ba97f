// internal/cliexec/runner.go
package cliexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Stream identifies which output pipe a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

// Runner starts a process and reports each output line as it arrives. It
// returns the exit code, or an error when the process could not be started.
type Runner interface {
	Run(ctx context.Context, binary string, args []string, onLine func(Stream, string)) (int, error)
}

// ExecRunner runs real processes with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, binary string, args []string, onLine func(Stream, string)) (int, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return -1, fmt.Errorf("%w: %s", ErrBinaryNotFound, binary)
		}
		return -1, fmt.Errorf("start %s: %w", binary, err)
	}

	// Serialize callbacks so onLine never runs concurrently with itself.
	var mu sync.Mutex
	var wg sync.WaitGroup
	pump := func(s Stream, r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			mu.Lock()
			onLine(s, scanner.Text())
			mu.Unlock()
		}
	}
	wg.Add(2)
	go pump(Stdout, stdout)
	go pump(Stderr, stderr)
	wg.Wait()

	err = cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		return exitErr.ExitCode(), nil
	default:
		return -1, err
	}
}
