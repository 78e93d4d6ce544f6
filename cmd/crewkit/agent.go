package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crewkit/crewkit/pkg/presenter"
	"github.com/crewkit/crewkit/pkg/subagents"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Inspect crewkit subagents",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all discoverable subagents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		loader, err := subagents.NewLoader()
		if err != nil {
			presenter.Error(err, "Failed to initialize subagent loader")
			return err
		}

		descs, err := loader.Discover(cmd.Context(), nil)
		if err != nil {
			presenter.Error(err, "Failed to discover subagents")
			return err
		}
		if len(descs) == 0 {
			presenter.Info("No subagents found")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tMODEL\tTOOLS\tSKILLS\tDESCRIPTION")
		for _, desc := range descs {
			model := desc.Model
			if model == "" {
				model = "(inherit)"
			}
			tools := "(none)"
			if len(desc.Tools) > 0 {
				tools = strings.Join(desc.Tools, ",")
			}
			preload := "-"
			if len(desc.Skills) > 0 {
				preload = strings.Join(desc.Skills, ",")
			}
			description := desc.Description
			if len(description) > 50 {
				description = description[:47] + "..."
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", desc.Name, model, tools, preload, description)
		}
		return tw.Flush()
	},
}

func init() {
	agentCmd.AddCommand(agentListCmd)
	rootCmd.AddCommand(agentCmd)
}
