// internal/cliexec/executor.go
// Package cliexec drives the Foundry Local command-line tool as an alternate
// transport for when the HTTP service is unavailable.
package cliexec

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/mwiater/foundrychat/internal/logging"
	"github.com/mwiater/foundrychat/internal/transport"
)

// DefaultServePort is the port `model serve` listens on unless told otherwise.
const DefaultServePort = 5272

// ErrBinaryNotFound is returned when the service binary is not on PATH.
var ErrBinaryNotFound = errors.New("foundry binary not found")

var percentPattern = regexp.MustCompile(`(\d+)%`)

// ProcessResult is the outcome of one CLI invocation.
type ProcessResult struct {
	Success  bool
	Output   string
	Error    string
	ExitCode int
}

// Err returns a process error for a failed result, or nil.
func (r ProcessResult) Err() *transport.ErrorInfo {
	if r.Success {
		return nil
	}
	details := strings.TrimSpace(r.Error)
	if details == "" {
		details = strings.TrimSpace(r.Output)
	}
	return transport.NewError(transport.KindProcess, fmt.Sprintf("foundry exited with code %d", r.ExitCode), details)
}

// Executor runs the service binary.
type Executor struct {
	binary     string
	baseArgs   []string
	runner     Runner
	listParser LineParser
}

// Option configures an Executor.
type Option func(*Executor)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option { return func(e *Executor) { e.runner = r } }

// WithParser replaces the list output parser.
func WithParser(p LineParser) Option { return func(e *Executor) { e.listParser = p } }

// New builds an Executor. command is the binary, optionally followed by
// arguments placed before every subcommand, split with shell quoting rules.
func New(command string, opts ...Option) (*Executor, error) {
	words, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse service binary %q: %w", command, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("service binary is empty")
	}
	e := &Executor{
		binary:     words[0],
		baseArgs:   words[1:],
		runner:     ExecRunner{},
		listParser: FixedWidthParser{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SetParser replaces the list output parser after construction.
func (e *Executor) SetParser(p LineParser) { e.listParser = p }

// Binary returns the executable name.
func (e *Executor) Binary() string { return e.binary }

// Run invokes the binary with args. onStdout, if set, sees every stdout line.
// A start failure is returned as an error and also reflected in the result.
func (e *Executor) Run(ctx context.Context, onStdout func(string), args ...string) (ProcessResult, error) {
	argv := append(append([]string{}, e.baseArgs...), args...)
	logging.LogRequest(logging.DirClientToCLI, e.binary, "", strings.Join(argv, " "), nil)

	var out, errOut strings.Builder
	code, err := e.runner.Run(ctx, e.binary, argv, func(s Stream, line string) {
		if line == "" {
			return
		}
		if s == Stderr {
			errOut.WriteString(line)
			errOut.WriteByte('\n')
			return
		}
		out.WriteString(line)
		out.WriteByte('\n')
		if onStdout != nil {
			onStdout(line)
		}
	})
	if err != nil {
		logging.LogEvent("cli %s: %v", strings.Join(argv, " "), err)
		return ProcessResult{ExitCode: -1, Error: "Error executing foundry command: " + err.Error()}, err
	}

	res := ProcessResult{Success: code == 0, Output: out.String(), Error: errOut.String(), ExitCode: code}
	logging.LogRequest(logging.DirCLIToClient, e.binary, "", fmt.Sprintf("%s exit=%d", strings.Join(argv, " "), code), []byte(res.Output+res.Error))
	return res, nil
}

// RunLine splits line with shell quoting rules and runs it.
func (e *Executor) RunLine(ctx context.Context, line string, onStdout func(string)) (ProcessResult, error) {
	args, err := shellwords.Parse(line)
	if err != nil {
		return ProcessResult{ExitCode: -1}, fmt.Errorf("parse arguments: %w", err)
	}
	return e.Run(ctx, onStdout, args...)
}

func (e *Executor) check(ctx context.Context, onStdout func(string), args ...string) (ProcessResult, error) {
	res, err := e.Run(ctx, onStdout, args...)
	if err != nil {
		return res, err
	}
	if info := res.Err(); info != nil {
		return res, info
	}
	return res, nil
}

// IsInstalled reports whether `--version` succeeds.
func (e *Executor) IsInstalled(ctx context.Context) bool {
	_, err := e.check(ctx, nil, "--version")
	return err == nil
}

// Version returns the trimmed `--version` output.
func (e *Executor) Version(ctx context.Context) (string, error) {
	res, err := e.check(ctx, nil, "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Output), nil
}

// ListAvailable parses `model list`.
func (e *Executor) ListAvailable(ctx context.Context) ([]Model, error) {
	res, err := e.check(ctx, nil, "model", "list")
	if err != nil {
		return nil, err
	}
	return e.listParser.Parse(res.Output), nil
}

// ListCached parses `cache list`.
func (e *Executor) ListCached(ctx context.Context) ([]Model, error) {
	res, err := e.check(ctx, nil, "cache", "list")
	if err != nil {
		return nil, err
	}
	return e.listParser.Parse(res.Output), nil
}

// Download runs `model download`. onProgress receives a 0..1 fraction for
// each stdout line carrying a percentage.
func (e *Executor) Download(ctx context.Context, name string, onProgress func(float64)) error {
	_, err := e.check(ctx, func(line string) {
		if onProgress == nil {
			return
		}
		if pct, ok := ParsePercent(line); ok {
			onProgress(pct / 100)
		}
	}, "model", "download", name)
	return err
}

// ParsePercent extracts the first "NN%" from a line.
func ParsePercent(line string) (float64, bool) {
	m := percentPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	return v, err == nil
}

// Delete runs `model delete`.
func (e *Executor) Delete(ctx context.Context, name string) error {
	_, err := e.check(ctx, nil, "model", "delete", name)
	return err
}

// RunChat sends one prompt through `model run` and returns its output.
func (e *Executor) RunChat(ctx context.Context, name, prompt string) (string, error) {
	res, err := e.check(ctx, nil, "model", "run", name, "--prompt", prompt)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// Serve runs `model serve` on port, blocking until the process exits or ctx
// is cancelled. A port of zero uses DefaultServePort.
func (e *Executor) Serve(ctx context.Context, name string, port int, onStdout func(string)) (ProcessResult, error) {
	if port == 0 {
		port = DefaultServePort
	}
	return e.Run(ctx, onStdout, "model", "serve", name, "--port", strconv.Itoa(port))
}

// ServiceStatus returns the combined output of `service status`. It
// satisfies discovery.StatusSource.
func (e *Executor) ServiceStatus(ctx context.Context) (string, error) {
	res, err := e.Run(ctx, nil, "service", "status")
	if err != nil {
		return "", err
	}
	combined := res.Output + res.Error
	if info := res.Err(); info != nil {
		return combined, info
	}
	return combined, nil
}
