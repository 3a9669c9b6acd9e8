package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/gridmake/internal/app"
	"github.com/specialistvlad/gridmake/internal/graph"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newBuildCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "build [PATH...]",
		Short: "Run every out-of-date segment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(v, cmd, args, func(a *app.App) error {
				return a.Build(cmd.Context())
			})
		},
	}
}

func newCleanCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [PATH...]",
		Short: "Forget recorded outcomes, keeping targets on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(v, cmd, args, func(a *app.App) error {
				return a.Clean(cmd.Context())
			})
		},
	}
}

func newStatusCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status [PATH...]",
		Short: "Show which segments a build would run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(v, cmd, args, func(a *app.App) error {
				statuses, err := a.Status()
				if err != nil {
					return err
				}
				return renderStatus(cmd.OutOrStdout(), statuses)
			})
		},
	}
}

func newGraphCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "graph [PATH...]",
		Short: "Print the dependency graph in Graphviz DOT format",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(v, cmd, args, func(a *app.App) error {
				p, err := a.Graph()
				if err != nil {
					return err
				}
				if p, err = graph.Sorted(p); err != nil {
					return err
				}
				return writeDOT(cmd.OutOrStdout(), p)
			})
		},
	}
}

func newSummaryCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "summary [PATH...]",
		Short: "Describe every segment and its last outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(v, cmd, args, func(a *app.App) error {
				return a.Pipeline().Summary(cmd.OutOrStdout())
			})
		},
	}
}

func newHistoryCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [PATH...]",
		Short: "List recent executions",
	}
	limit := cmd.Flags().IntP("limit", "n", 20, "Maximum number of executions to list.")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if *limit <= 0 {
			return &ExitError{Code: 2, Message: "limit must be positive"}
		}
		return withApp(v, cmd, args, func(a *app.App) error {
			entries, err := a.History(cmd.Context(), *limit)
			if errors.Is(err, app.ErrHistoryDisabled) {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			if err != nil {
				return err
			}
			return renderHistory(cmd.OutOrStdout(), entries)
		})
	}
	return cmd
}

func newWatchCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [PATH...]",
		Short: "Build, then rebuild whenever an input changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(v, cmd, args, func(a *app.App) error {
				return a.Watch(ctx)
			})
		},
	}
	durationFlag(cmd, v, "debounce")
	return cmd
}
