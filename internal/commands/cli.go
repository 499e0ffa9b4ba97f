// internal/commands/cli.go
package foundrychat

import (
	"context"
	"fmt"

	"github.com/mwiater/foundrychat/internal/cliexec"
	"github.com/spf13/cobra"
)

// cliCmd groups the commands that drive the foundry command-line tool
// directly instead of the HTTP service.
var cliCmd = &cobra.Command{
	Use:   "cli",
	Short: "Run foundry command-line operations",
	Long:  `The 'cli' command groups subcommands that invoke the configured service binary (see --serviceBinary) and parse its output.`,
}

var cliVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the foundry tool version",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		if !svc.cli.IsInstalled(cmd.Context()) {
			return fmt.Errorf("%s is not installed or not on PATH", svc.cli.Binary())
		}
		version, err := svc.cli.Version(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s is not installed or failed: %w", svc.cli.Binary(), err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), version)
		return nil
	},
}

var cliListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models known to the foundry tool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listCLIModels(cmd, (*cliexec.Executor).ListAvailable)
	},
}

var cliCachedCmd = &cobra.Command{
	Use:   "cached",
	Short: "List models in the foundry tool's cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listCLIModels(cmd, (*cliexec.Executor).ListCached)
	},
}

var cliDownloadCmd = &cobra.Command{
	Use:   "download <model>",
	Short: "Download a model with the foundry tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Downloading %s\n", accentText(args[0]))
		err = svc.cli.Download(cmd.Context(), args[0], func(fraction float64) {
			fmt.Fprintf(out, "\r  %5.1f%%", fraction*100)
		})
		fmt.Fprintln(out)
		if err != nil {
			fmt.Fprintln(out, failedText("download failed"))
			return err
		}
		fmt.Fprintln(out, successText("download complete"))
		return nil
	},
}

var cliDeleteCmd = &cobra.Command{
	Use:   "delete <model>",
	Short: "Delete a cached model with the foundry tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		if err := svc.cli.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successText("deleted"), args[0])
		return nil
	},
}

var cliRunCmd = &cobra.Command{
	Use:   "run <model> <prompt>",
	Short: "Send one prompt through the foundry tool",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		reply, err := svc.cli.RunChat(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), reply)
		return nil
	},
}

var cliServeCmd = &cobra.Command{
	Use:   "serve <model>",
	Short: "Serve a model with the foundry tool until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetInt("port")
		out := cmd.OutOrStdout()
		res, err := svc.cli.Serve(cmd.Context(), args[0], port, func(line string) {
			fmt.Fprintln(out, line)
		})
		if err != nil {
			return err
		}
		if info := res.Err(); info != nil {
			return info
		}
		return nil
	},
}

var cliServiceStatusCmd = &cobra.Command{
	Use:   "service-status",
	Short: "Show the output of the foundry service status command",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		output, err := svc.cli.ServiceStatus(cmd.Context())
		fmt.Fprint(cmd.OutOrStdout(), output)
		return err
	},
}

var cliExecCmd = &cobra.Command{
	Use:   "exec <arguments>",
	Short: "Run arbitrary foundry arguments, split with shell quoting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		res, err := svc.cli.RunLine(cmd.Context(), args[0], nil)
		if err != nil {
			return err
		}
		if ok, err := writeStructured(cmd, res); ok {
			if err != nil {
				return err
			}
		} else {
			fmt.Fprint(cmd.OutOrStdout(), res.Output)
			if res.Error != "" {
				fmt.Fprint(cmd.ErrOrStderr(), res.Error)
			}
		}
		if info := res.Err(); info != nil {
			return info
		}
		return nil
	},
}

func listCLIModels(cmd *cobra.Command, list func(*cliexec.Executor, context.Context) ([]cliexec.Model, error)) error {
	svc, err := newServices(GetConfig())
	if err != nil {
		return err
	}
	switch parser, _ := cmd.Flags().GetString("parser"); parser {
	case "json":
		svc.cli.SetParser(cliexec.JSONParser{})
	case "", "fixed":
	default:
		return fmt.Errorf("invalid --parser %q (want fixed or json)", parser)
	}
	models, err := list(svc.cli, cmd.Context())
	if err != nil {
		return err
	}
	if ok, err := writeStructured(cmd, models); ok {
		return err
	}
	rows := make([][]string, 0, len(models))
	for _, m := range models {
		rows = append(rows, []string{m.Alias, m.Device, m.Task, m.FileSize, m.License, m.ModelID})
	}
	renderTable(cmd.OutOrStdout(), []string{"ALIAS", "DEVICE", "TASK", "SIZE", "LICENSE", "MODEL ID"}, rows)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{cliListCmd, cliCachedCmd} {
		c.Flags().String("parser", "fixed", "output parser: fixed (column layout) or json")
	}
	cliServeCmd.Flags().Int("port", cliexec.DefaultServePort, "port for the served model")
	cliCmd.AddCommand(cliVersionCmd, cliListCmd, cliCachedCmd, cliDownloadCmd, cliDeleteCmd, cliRunCmd, cliServeCmd, cliServiceStatusCmd, cliExecCmd)
	rootCmd.AddCommand(cliCmd)
}
