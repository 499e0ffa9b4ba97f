// internal/cliexec/parser.go
package cliexec

import (
	"encoding/json"
	"strings"
)

// Model is one row of `model list` or `cache list` output.
type Model struct {
	Alias    string `json:"alias" yaml:"alias"`
	Device   string `json:"device,omitempty" yaml:"device,omitempty"`
	Task     string `json:"task,omitempty" yaml:"task,omitempty"`
	FileSize string `json:"fileSize,omitempty" yaml:"fileSize,omitempty"`
	License  string `json:"license,omitempty" yaml:"license,omitempty"`
	ModelID  string `json:"modelId" yaml:"modelId"`
}

// LineParser turns list command output into models.
type LineParser interface {
	Parse(output string) []Model
}

// FixedWidthParser reads the tabular layout printed by the Foundry CLI.
// Column offsets are fixed, so a change in the tool's widths breaks parsing.
//
// A full row has seven fields: alias, device, task, a two-word file size,
// license and model id. A continuation row omits the alias and inherits it
// from the row above. After a "Models ..." heading the output is the cache
// listing, whose rows are an icon, the alias and the model id.
type FixedWidthParser struct{}

// Parse implements LineParser.
func (FixedWidthParser) Parse(output string) []Model {
	var (
		models    []Model
		prevAlias string
		cached    bool
	)
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "Models") {
			cached = true
		}
		if line == "" || strings.HasPrefix(line, "Alias") || strings.HasPrefix(line, "Models") || strings.HasPrefix(line, "---") {
			continue
		}

		fields := strings.Fields(line)
		var m Model
		switch {
		case cached:
			if len(fields) < 3 {
				continue
			}
			m = Model{Alias: fields[1], ModelID: fields[2]}
		case len(fields) == 7:
			m = Model{
				Alias:    column(line, 0, 31),
				Device:   column(line, 31, 11),
				Task:     column(line, 42, 15),
				FileSize: column(line, 57, 13),
				License:  column(line, 70, 13),
				ModelID:  column(line, 83, -1),
			}
			if m.Alias == "" {
				m.Alias = prevAlias
			}
		case len(fields) == 6 && len(models) > 0:
			m = Model{
				Alias:    prevAlias,
				Device:   column(line, 0, 11),
				Task:     column(line, 11, 15),
				FileSize: column(line, 26, 13),
				License:  column(line, 39, 13),
				ModelID:  column(line, 52, -1),
			}
		default:
			continue
		}
		models = append(models, m)
		prevAlias = m.Alias
	}
	return models
}

// column returns the trimmed text at [start, start+width), clipped to the
// line. A negative width reads to the end.
func column(line string, start, width int) string {
	if start >= len(line) {
		return ""
	}
	end := len(line)
	if width >= 0 && start+width < end {
		end = start + width
	}
	return strings.TrimSpace(line[start:end])
}

// JSONParser reads structured output: either a JSON array of models or one
// JSON object per line. Lines that are not objects are ignored.
type JSONParser struct{}

// Parse implements LineParser.
func (JSONParser) Parse(output string) []Model {
	trimmed := strings.TrimSpace(output)
	if strings.HasPrefix(trimmed, "[") {
		var models []Model
		if err := json.Unmarshal([]byte(trimmed), &models); err == nil {
			return models
		}
	}
	var models []Model
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var m Model
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			continue
		}
		models = append(models, m)
	}
	return models
}
