// internal/commands/list_commands.go
package foundrychat

import (
	"strings"

	"github.com/spf13/cobra"
)

// listCmd groups listing commands that do not need the service.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Group commands for listing local information",
}

// commandsCmd implements 'list commands', which prints the available
// commands and subcommands in a hierarchical, indented, two-column format.
var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List all commands and subcommands in two columns",
	Long:  `The 'commands' subcommand lists all commands and subcommands in a hierarchical, indented format, with the command path in the first column and its short description in the second column.`,
	Run: func(cmd *cobra.Command, args []string) {
		rows := make([][]string, 0)
		for _, data := range collectCommandData(rootCmd, "", "") {
			if strings.Contains(data.Path, "completion") || strings.HasSuffix(data.Path, " help") {
				continue
			}
			rows = append(rows, []string{data.Path, data.Description})
		}
		renderTable(cmd.OutOrStdout(), []string{"COMMAND", "DESCRIPTION"}, rows)
	},
}

// commandInfo holds the path and description of a command for display.
type commandInfo struct {
	Path        string
	Description string
}

func init() {
	listCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(listCmd)
}

// collectCommandData walks the command tree and returns a flattened slice
// of path/description pairs.
func collectCommandData(cmd *cobra.Command, currentPath string, indent string) []commandInfo {
	fullPath := cmd.Name()
	if currentPath != "" {
		fullPath = currentPath + " " + cmd.Name()
	}

	allData := []commandInfo{{Path: indent + fullPath, Description: cmd.Short}}
	for _, subCmd := range cmd.Commands() {
		allData = append(allData, collectCommandData(subCmd, fullPath, indent+"  ")...)
	}
	return allData
}
