package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/crewkit/crewkit/pkg/presenter"
	"github.com/crewkit/crewkit/pkg/skills"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Inspect crewkit skills",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all discoverable skills",
	Long:  `List every skill the configured directories expose, in discovery priority order (project > user > custom).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		mgr, err := newSkillManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill subsystem")
			return err
		}

		descs, derr := mgr.Discover(cmd.Context())
		if derr != nil {
			presenter.Warning(fmt.Sprintf("Some definitions failed to load: %v", derr))
		}
		if len(descs) == 0 {
			presenter.Info("No skills found")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSCOPE\tTRUST\tMODE\tDESCRIPTION")
		for _, desc := range descs {
			description := desc.Description
			if len(description) > 60 {
				description = description[:57] + "..."
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", desc.Name, desc.Scope, desc.Trust, desc.Mode, description)
		}
		return tw.Flush()
	},
}

var skillValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a skill definition file",
	Long: `Validate a SKILL.md definition: frontmatter schema, trust level
resolution, and trust restrictions. The outcome is reported, never a
crash; the exit status is non-zero when the definition is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope := skills.Scope(viper.GetString("skills.validate_scope"))
		if scope == "" {
			scope = skills.ScopeCustom
		}

		validator := skills.NewValidator(viper.GetStringSlice("skills.trusted_paths")...)
		outcome := validator.Validate(args[0], scope)

		format, _ := cmd.Flags().GetString("format")
		if format == "yaml" {
			out, err := yaml.Marshal(outcome)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
		} else {
			printOutcome(outcome)
		}

		if !outcome.Valid {
			os.Exit(1)
		}
		return nil
	},
}

var skillWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch skill directories and report newly added skills",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mgr, err := newSkillManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill subsystem")
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if _, err := mgr.Discover(ctx); err != nil {
			presenter.Warning(fmt.Sprintf("Initial discovery reported errors: %v", err))
		}

		discovery, err := newDiscovery()
		if err != nil {
			return err
		}

		presenter.Info("Watching skill directories (Ctrl-C to stop)")
		werr := discovery.Watch(ctx, mgr.Has, skills.NewValidator(viper.GetStringSlice("skills.trusted_paths")...), func(found []*skills.Descriptor) {
			for _, desc := range found {
				presenter.Success(fmt.Sprintf("New skill '%s' (%s)", desc.Name, desc.Path))
			}
		})
		if ctx.Err() != nil {
			return nil
		}
		return werr
	},
}

func printOutcome(outcome *skills.ValidationOutcome) {
	if outcome.Valid {
		presenter.Success(fmt.Sprintf("%s is valid (trust: %s)", outcome.Path, outcome.Trust))
	} else {
		presenter.Error(fmt.Errorf("%d error(s)", len(outcome.Errors)), outcome.Path)
	}
	for _, e := range outcome.Errors {
		presenter.Info("  error: " + e)
	}
	for _, w := range outcome.Warnings {
		presenter.Warning("  " + w)
	}
}

func newDiscovery() (*skills.Discovery, error) {
	opts := []skills.Option{skills.WithDefaultDirs()}
	if custom := viper.GetStringSlice("skills.paths"); len(custom) > 0 {
		opts = append(opts, skills.WithCustomDirs(custom...))
	}
	return skills.NewDiscovery(opts...)
}

func newSkillManager() (*skills.Manager, error) {
	discovery, err := newDiscovery()
	if err != nil {
		return nil, err
	}
	validator := skills.NewValidator(viper.GetStringSlice("skills.trusted_paths")...)
	return skills.NewManager(
		skills.WithDiscovery(discovery),
		skills.WithValidator(validator),
	)
}

func init() {
	skillValidateCmd.Flags().String("format", "text", "Output format (text, yaml)")

	skillCmd.AddCommand(skillListCmd)
	skillCmd.AddCommand(skillValidateCmd)
	skillCmd.AddCommand(skillWatchCmd)
	rootCmd.AddCommand(skillCmd)
}
