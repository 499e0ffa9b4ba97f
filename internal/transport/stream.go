// internal/transport/stream.go
package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// ErrStreamDone is returned by ReadEvents callers to stop early without error.
var ErrStreamDone = errors.New("stream done")

// ReadLines calls fn with each line of r, without the trailing newline, until
// EOF. It stops early when ctx is cancelled or fn returns an error.
func ReadLines(ctx context.Context, r io.Reader, fn func(line string) error) error {
	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if cbErr := fn(strings.TrimRight(line, "\r\n")); cbErr != nil {
				return cbErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
	}
}

// ReadEvents reads a server-sent event stream and calls fn with each "data:"
// payload. The "[DONE]" sentinel ends the stream.
func ReadEvents(ctx context.Context, r io.Reader, fn func(data string) error) error {
	err := ReadLines(ctx, r, func(line string) error {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data:") {
			return nil
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return ErrStreamDone
		}
		return fn(data)
	})
	if errors.Is(err, ErrStreamDone) {
		return nil
	}
	return err
}
