package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crewkit/crewkit/pkg/presenter"
	"github.com/crewkit/crewkit/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")

		info := version.Get()
		if format == "json" {
			out, err := info.JSON()
			if err != nil {
				presenter.Error(err, "Failed to render version information")
				return err
			}
			fmt.Println(out)
			return nil
		}
		fmt.Println(info.String())
		return nil
	},
}

func init() {
	versionCmd.Flags().String("format", "text", "Output format (text or json)")
	rootCmd.AddCommand(versionCmd)
}
