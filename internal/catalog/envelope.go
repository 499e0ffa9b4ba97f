// internal/catalog/envelope.go
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

const (
	catalogProviderType = "AzureFoundry"
	localProviderType   = "AzureFoundryLocal"
)

// DownloadEnvelope is the body of POST openai/download.
type DownloadEnvelope struct {
	BufferSize       *int            `json:"bufferSize"`
	CustomDirPath    string          `json:"customDirPath,omitempty"`
	IgnorePipeReport bool            `json:"ignorePipeReport"`
	Model            ModelDescriptor `json:"model"`
	ProgressToken    string          `json:"progressToken,omitempty"`
	Token            *string         `json:"token"`
}

// EnvelopeOptions tune the envelope around the sanitized descriptor.
type EnvelopeOptions struct {
	CustomDirPath string
	BufferSize    *int
	ProgressToken string
}

// NewEnvelope copies d and rewrites the two fields the download endpoint
// rejects: the catalog provider type and an object-valued runtime.
func NewEnvelope(d ModelDescriptor, opts EnvelopeOptions) DownloadEnvelope {
	model := d
	if model.ProviderType == catalogProviderType {
		model.ProviderType = localProviderType
	}
	if model.Runtime.Kind == FlexObject {
		model.Runtime = FlexValue{}
	}
	token := opts.ProgressToken
	if token == "" {
		token = uuid.NewString()
	}
	return DownloadEnvelope{
		BufferSize:       opts.BufferSize,
		CustomDirPath:    opts.CustomDirPath,
		IgnorePipeReport: true,
		Model:            model,
		ProgressToken:    token,
	}
}

// envelopeSchema mirrors what the download endpoint accepts.
var envelopeSchema = map[string]any{
	"type":     "object",
	"required": []any{"model", "ignorePipeReport"},
	"properties": map[string]any{
		"bufferSize":       map[string]any{"type": []any{"integer", "null"}},
		"customDirPath":    map[string]any{"type": "string"},
		"ignorePipeReport": map[string]any{"type": "boolean"},
		"progressToken":    map[string]any{"type": "string"},
		"token":            map[string]any{"type": []any{"string", "null"}},
		"model": map[string]any{
			"type":     "object",
			"required": []any{"name", "providerType"},
			"properties": map[string]any{
				"name":         map[string]any{"type": "string", "minLength": 1},
				"providerType": map[string]any{"type": "string", "not": map[string]any{"const": catalogProviderType}},
				"runtime":      map[string]any{"type": []any{"string", "null"}},
			},
		},
	},
}

// Validate checks the envelope against the download endpoint's schema.
func (e DownloadEnvelope) Validate() error {
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal download envelope: %w", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(envelopeSchema), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("download envelope failed validation: %s", strings.Join(details, "; "))
}
