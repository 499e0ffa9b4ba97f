// internal/commands/status.go
package foundrychat

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// statusCmd reports the resolved endpoint and the service status payload.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the service endpoint and status",
	Long:  `The 'status' command resolves the service URL (from --baseUrl or discovery) and prints the status reported by the service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		baseURL := svc.transport.BaseURL(ctx)

		res := svc.catalog.Status(ctx)
		status, err := res.Unwrap()
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Endpoint: %s (%s)\n", baseURL, failedText("unreachable"))
			return err
		}

		if ok, err := writeStructured(cmd, struct {
			BaseURL string `json:"baseUrl" yaml:"baseUrl"`
			Status  any    `json:"status" yaml:"status"`
		}{baseURL, status}); ok {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Endpoint:          %s (%s)\n", accentText(baseURL), successText("online"))
		fmt.Fprintf(out, "Model directory:   %s\n", status.ModelDirPath)
		if status.PipeName != nil {
			fmt.Fprintf(out, "Pipe:              %s\n", *status.PipeName)
		}
		fmt.Fprintf(out, "Auto registration: %s (resolved: %v)\n", status.AutoRegistrationStatus, status.IsAutoRegistrationResolved)
		if len(status.Endpoints) > 0 {
			fmt.Fprintf(out, "Endpoints:         %s\n", strings.Join(status.Endpoints, ", "))
		}
		dump(out, "status", status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
