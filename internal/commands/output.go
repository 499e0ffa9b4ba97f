// internal/commands/output.go
package foundrychat

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/k0kubun/pp"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var (
	successText = color.New(color.FgGreen).SprintFunc()
	failedText  = color.New(color.FgRed).SprintFunc()
	mutedText   = color.New(color.FgHiBlack).SprintFunc()
	accentText  = color.New(color.FgCyan, color.Bold).SprintFunc()
)

func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output")
	if format == "" {
		return outputTable
	}
	return format
}

// writeStructured writes v as JSON or YAML and reports whether it did.
func writeStructured(cmd *cobra.Command, v any) (bool, error) {
	out := cmd.OutOrStdout()
	switch outputFormat(cmd) {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	}
	return false, nil
}

// renderTable prints rows under header in the borderless layout used by
// every list command.
func renderTable(out io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}

// dump pretty-prints v when --debug is set.
func dump(out io.Writer, label string, v any) {
	if !DebugEnabled() {
		return
	}
	fmt.Fprintln(out, mutedText(label+":"))
	_, _ = pp.Fprintln(out, v)
}

func yesNo(b bool) string {
	if b {
		return successText("yes")
	}
	return mutedText("no")
}
