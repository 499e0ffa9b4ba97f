// internal/chat/chunks.go
package chat

import (
	"fmt"

	"github.com/mwiater/foundrychat/internal/tokens"
)

const (
	// DefaultMaxInputTokens stands in when the model does not report a limit.
	DefaultMaxInputTokens = 4096
	// ChunkReserve is held back from the budget for prompt and reply overhead.
	ChunkReserve = 500
	// MinChunkTokens is the smallest budget worth sending chunks with.
	MinChunkTokens = 500
)

// ChunkPlan is the outcome of budgeting a chunked send.
type ChunkPlan struct {
	MaxTokens       int
	HistoryTokens   int
	AvailableTokens int
	ChunkChars      int
}

// PlanChunks computes the chunk size for an attachment given the model limit
// and existing history. It fails with ErrContextOverflow when fewer than
// MinChunkTokens remain.
func PlanChunks(maxInputTokens int, history []string) (ChunkPlan, error) {
	plan := ChunkPlan{MaxTokens: maxInputTokens}
	if plan.MaxTokens <= 0 {
		plan.MaxTokens = DefaultMaxInputTokens
	}
	for _, h := range history {
		plan.HistoryTokens += tokens.Estimate(h)
	}
	plan.AvailableTokens = plan.MaxTokens - plan.HistoryTokens - ChunkReserve
	if plan.AvailableTokens < MinChunkTokens {
		return plan, fmt.Errorf("%w: %d tokens available", ErrContextOverflow, plan.AvailableTokens)
	}
	plan.ChunkChars = plan.AvailableTokens * tokens.CharsPerToken
	return plan, nil
}

// SplitChunks cuts text into consecutive pieces of at most size characters.
// The last piece may be shorter. Concatenating the result yields text.
func SplitChunks(text string, size int) []string {
	if text == "" || size <= 0 {
		return nil
	}
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// ChunkPrompt wraps chunk i of n. Non-final chunks ask the model to
// acknowledge and wait; the final chunk carries the user's instruction.
func ChunkPrompt(i, n int, fileName, chunk, instruction string) string {
	header := fmt.Sprintf("[Part %d/%d of %s]\n```\n%s\n```\n\n", i+1, n, fileName, chunk)
	if i == n-1 {
		return header + instruction
	}
	return header + fmt.Sprintf("I am sending a large file in parts. Please acknowledge receipt of Part %d and wait for the rest.", i+1)
}

// FileBlock is the text appended to a message when a small file is attached.
func FileBlock(name, content string) string {
	return fmt.Sprintf("\n\nFile: %s\n```\n%s\n```", name, content)
}
