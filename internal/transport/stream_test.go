// internal/transport/stream_test.go
package transport

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestReadEventsStopsAtDone(t *testing.T) {
	t.Parallel()

	body := "data: {\"a\":1}\n\n: keepalive\ndata: {\"a\":2}\r\ndata: [DONE]\ndata: {\"a\":3}\n"
	var got []string
	err := ReadEvents(context.Background(), strings.NewReader(body), func(data string) error {
		got = append(got, data)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != `{"a":1}` || got[1] != `{"a":2}` {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestReadLinesHandlesMissingTrailingNewline(t *testing.T) {
	t.Parallel()

	var got []string
	err := ReadLines(context.Background(), strings.NewReader("one\ntwo"), func(line string) error {
		got = append(got, line)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1] != "two" {
		t.Fatalf("unexpected lines: %v", got)
	}
}

func TestReadLinesHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	err := ReadLines(ctx, strings.NewReader("a\nb\nc\n"), func(string) error {
		count++
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one line before cancellation, got %d", count)
	}
}
