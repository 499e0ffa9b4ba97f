// internal/catalog/types.go
package catalog

import (
	"strings"

	"github.com/docker/go-units"
)

// ModelDescriptor is one entry of the service catalog (GET foundry/list).
// IsCached, IsFavorite, and Category are annotated locally and never sent.
type ModelDescriptor struct {
	Name                   string    `json:"name"`
	DisplayName            string    `json:"displayName"`
	ProviderType           string    `json:"providerType"`
	URI                    string    `json:"uri"`
	Version                string    `json:"version"`
	ModelType              string    `json:"modelType"`
	Architecture           string    `json:"architecture"`
	FileSize               string    `json:"fileSize"`
	ParameterSize          string    `json:"parameterSize"`
	Path                   *string   `json:"path"`
	Icon                   *string   `json:"icon"`
	FineTuningTemplateName *string   `json:"fineTuningTemplateName"`
	Publisher              FlexValue `json:"publisher,omitzero"`
	Runtime                FlexValue `json:"runtime,omitzero"`
	Task                   FlexValue `json:"task,omitzero"`
	PromptTemplate         FlexValue `json:"promptTemplate,omitzero"`

	IsCached   bool   `json:"-"`
	IsFavorite bool   `json:"-"`
	Category   string `json:"-"`
}

// SizeBytes parses FileSize ("2.13 GB", "512MB") into bytes. Unknown formats return 0.
func (d ModelDescriptor) SizeBytes() int64 {
	return ParseSize(d.FileSize)
}

// ParseSize converts a human-readable size into bytes, or 0 when it cannot.
func ParseSize(size string) int64 {
	size = strings.TrimSpace(size)
	if size == "" {
		return 0
	}
	n, err := units.FromHumanSize(size)
	if err != nil {
		return 0
	}
	return n
}

// FormatSize renders a byte count for display, falling back to the raw text.
func FormatSize(raw string) string {
	if n := ParseSize(raw); n > 0 {
		return units.HumanSizeWithPrecision(float64(n), 3)
	}
	if strings.TrimSpace(raw) == "" {
		return "-"
	}
	return raw
}

// ActiveModel is a model currently loaded by the service (GET v1/models).
type ActiveModel struct {
	ID              string `json:"id"`
	MaxInputTokens  int    `json:"maxInputTokens"`
	MaxOutputTokens int    `json:"maxOutputTokens"`
	Object          string `json:"object"`
	Created         int64  `json:"created"`
	OwnedBy         string `json:"owned_by"`
}

type modelsResponse struct {
	Data []ActiveModel `json:"data"`
}

// ServiceStatus is the payload of GET openai/status.
type ServiceStatus struct {
	Endpoints                  []string `json:"endpoints"`
	ModelDirPath               string   `json:"modelDirPath"`
	PipeName                   *string  `json:"pipeName"`
	IsAutoRegistrationResolved bool     `json:"isAutoRegistrationResolved"`
	AutoRegistrationStatus     string   `json:"autoRegistrationStatus"`
}
