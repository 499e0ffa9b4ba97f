package foundrychat

import (
	"github.com/mwiater/foundrychat/internal/appconfig"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// showCmd groups commands that display local information.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Group commands for showing local information",
}

// showConfigCmd implements the 'show config' command, which displays the current configuration settings.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the JSON configs are loaded properly and overriden by flags accordingly.`,
	Run: func(cmd *cobra.Command, args []string) {
		fallback := appconfig.Defaults()
		fallback.Debug = viper.GetBool("debug")
		fallback.Stream = viper.GetBool("stream")
		fallback.BaseURL = viper.GetString("baseUrl")
		appconfig.ShowConfig(cmd.OutOrStdout(), viper.ConfigFileUsed(), GetConfig(), fallback)
	},
}

func init() {
	showCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(showCmd)
}
