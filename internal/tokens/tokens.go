// internal/tokens/tokens.go
// Package tokens estimates token counts for context budgeting. The estimate
// is a fixed four-characters-per-token heuristic.
package tokens

import "unicode/utf8"

const (
	// CharsPerToken is the heuristic ratio used throughout budgeting.
	CharsPerToken = 4
	// ImageCost approximates the vision tokens for one attached image.
	ImageCost = 1000
	// SystemPromptCost approximates the fixed system instruction.
	SystemPromptCost = 20
)

// Estimate returns floor(characters/4), counting runes rather than bytes.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return utf8.RuneCountInString(text) / CharsPerToken
}

// Inputs is everything that contributes to the next request's size.
type Inputs struct {
	History    []string
	Input      string
	Attachment string
	HasImage   bool
}

// Total sums history, pending input, text attachment, a flat image cost, and
// the system prompt overhead.
func Total(in Inputs) int {
	count := 0
	for _, h := range in.History {
		count += Estimate(h)
	}
	count += Estimate(in.Input)
	count += Estimate(in.Attachment)
	if in.HasImage {
		count += ImageCost
	}
	return count + SystemPromptCost
}

// OverBudget reports whether total exceeds a known, positive input limit.
func OverBudget(total, maxInputTokens int) bool {
	return maxInputTokens > 0 && total > maxInputTokens
}
