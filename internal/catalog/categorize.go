// internal/catalog/categorize.go
package catalog

import "strings"

// Category names shown in the model browser.
const (
	CategoryText      = "Text Generation"
	CategoryVision    = "Vision"
	CategoryEmbedding = "Embedding"
	CategorySpeech    = "Speech"
	CategoryOther     = "Other"
)

// Categories lists every category in display order.
var Categories = []string{CategoryText, CategoryVision, CategoryEmbedding, CategorySpeech, CategoryOther}

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{CategoryText, []string{"text", "llm", "language"}},
	{CategoryVision, []string{"vision", "image", "multimodal"}},
	{CategoryEmbedding, []string{"embed", "vector"}},
	{CategorySpeech, []string{"speech", "audio", "tts", "stt"}},
}

// Categorize derives a display category from the model type.
func Categorize(d ModelDescriptor) string {
	t := strings.ToLower(d.ModelType)
	if t == "" {
		return CategoryOther
	}
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(t, kw) {
				return entry.category
			}
		}
	}
	return CategoryOther
}

// FilterCategory returns the descriptors in category. "" and "All" return everything.
func FilterCategory(models []ModelDescriptor, category string) []ModelDescriptor {
	if category == "" || strings.EqualFold(category, "all") {
		return models
	}
	var out []ModelDescriptor
	for _, m := range models {
		if strings.EqualFold(m.Category, category) {
			out = append(out, m)
		}
	}
	return out
}
