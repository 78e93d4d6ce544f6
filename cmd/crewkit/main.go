// Command crewkit inspects and validates the skills and subagents
// available to a crewkit-embedding agent host.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crewkit/crewkit/pkg/logger"
	"github.com/crewkit/crewkit/pkg/presenter"
)

var rootCmd = &cobra.Command{
	Use:   "crewkit",
	Short: "Manage crewkit skills and subagents",
	Long:  `crewkit lists, validates, and watches the skill and subagent definitions an agent host discovers at startup.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if quiet, err := cmd.Flags().GetBool("quiet"); err == nil && quiet {
			presenter.SetQuiet(true)
		}
		if level := viper.GetString("log_level"); level != "" {
			if err := logger.SetLogLevel(level); err != nil {
				return fmt.Errorf("invalid log level %q: %w", level, err)
			}
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	viper.SetEnvPrefix("CREWKIT")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.crewkit")
	viper.AddConfigPath(".crewkit")
	_ = viper.ReadInConfig()

	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "fmt")

	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress non-error output")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
