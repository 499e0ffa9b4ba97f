// internal/chat/history.go
package chat

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/mwiater/foundrychat/internal/catalog"
	"github.com/mwiater/foundrychat/internal/inference"
)

// SystemPrompt opens every request.
const SystemPrompt = "You are a helpful AI assistant. Please respond in the same language as the user."

// BuildHistory turns records into request messages. Error records are
// skipped. When limitID names a record, nothing after it is included.
func BuildHistory(records []Record, limitID string) []inference.Message {
	msgs := make([]inference.Message, 0, len(records)+1)
	msgs = append(msgs, inference.Message{Role: inference.RoleSystem, Content: inference.Content{Text: SystemPrompt}})

	for _, r := range records {
		if r.IsError {
			continue
		}
		role := inference.RoleAssistant
		if r.IsUser {
			role = inference.RoleUser
		}
		content := inference.Content{Text: r.Text}
		if r.Image != nil {
			content = inference.Content{Parts: []inference.ContentPart{
				inference.TextPart(r.Text),
				inference.ImagePart(ImageDataURL(r.Image)),
			}}
		}
		msgs = append(msgs, inference.Message{Role: role, Content: content})

		if limitID != "" && r.ID == limitID {
			break
		}
	}
	return msgs
}

// ImageDataURL encodes image bytes as a JPEG data URL.
func ImageDataURL(image []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
}

// ModelInfo describes an active model's limits for display.
func ModelInfo(m catalog.ActiveModel) string {
	return fmt.Sprintf("ID: %s\nOwner: %s\nCreated: %s\n\nMax Input Context: %d tokens\nMax Output Generation: %d tokens",
		m.ID, m.OwnedBy, time.Unix(m.Created, 0).Local().Format(time.DateTime), m.MaxInputTokens, m.MaxOutputTokens)
}

func sendUsageText(u *inference.Usage) string {
	if u == nil {
		return ""
	}
	return fmt.Sprintf("%d tokens", u.TotalTokens)
}

func continueUsageText(u *inference.Usage) string {
	if u == nil {
		return "Usage info unavailable"
	}
	return fmt.Sprintf("%d tokens (%d prompt, %d completion)", u.TotalTokens, u.PromptTokens, u.CompletionTokens)
}

func addUsage(total, u *inference.Usage) *inference.Usage {
	if u == nil {
		return total
	}
	if total == nil {
		c := *u
		return &c
	}
	return &inference.Usage{
		PromptTokens:     total.PromptTokens + u.PromptTokens,
		CompletionTokens: total.CompletionTokens + u.CompletionTokens,
		TotalTokens:      total.TotalTokens + u.TotalTokens,
	}
}
