package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/gridmake/internal/app"
	"github.com/specialistvlad/gridmake/internal/hcl_adapter"
	"github.com/specialistvlad/gridmake/internal/watch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "GRIDMAKE"
	configName        = ".gridmake"
	defaultDefinition = "gridmake.hcl"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// NewRootCommand builds the gridmake command tree. Command output is written
// to outW; logs go to the command's error stream.
func NewRootCommand(outW io.Writer) *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "gridmake",
		Short: "Make-like build tracking for HCL pipelines",
		Long: `gridmake runs the segments declared in HCL definition files, skipping
every segment whose targets are newer than its dependencies.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cmd)
		},
	}
	root.SetOut(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Message: err.Error()}
	})

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default .gridmake.yaml)")
	flags.String("log-level", "info", "Logging level: 'debug', 'info', 'warn' or 'error'.")
	flags.String("log-format", "text", "Log output format: 'text' or 'json'.")
	flags.String("library-path", "libs", "Directory holding one sub-directory per library.")
	flags.String("state", ".gridmake/state.json", "Pipeline state file. Empty disables it.")
	flags.String("history", ".gridmake/history.db", "Execution history database. Empty disables it.")
	flags.BoolP("quiet", "q", false, "Suppress per-segment notifications.")
	for _, name := range []string{"log-level", "log-format", "library-path", "state", "history", "quiet"} {
		_ = v.BindPFlag(configKey(name), flags.Lookup(name))
	}
	v.SetDefault("paths", []string{})
	v.SetDefault("debounce", watch.DefaultDebounce)

	root.AddCommand(
		newBuildCommand(v),
		newCleanCommand(v),
		newStatusCommand(v),
		newGraphCommand(v),
		newSummaryCommand(v),
		newHistoryCommand(v),
		newWatchCommand(v),
	)
	return root
}

func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// A missing default config file is fine; we use defaults.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return &ExitError{Code: 2, Message: fmt.Sprintf("failed to read config: %v", err)}
		}
	}
	return nil
}

// configKey maps a flag name to its config file and environment key.
func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// newConfig assembles the application configuration. Positional arguments
// override the configured definition paths.
func newConfig(v *viper.Viper, args []string) (*app.Config, error) {
	paths := args
	if len(paths) == 0 {
		paths = v.GetStringSlice("paths")
	}
	if len(paths) == 0 {
		paths = []string{defaultDefinition}
	}

	cfg, err := app.NewConfig(app.Config{
		Paths:       paths,
		LibraryPath: v.GetString("library_path"),
		StatePath:   v.GetString("state"),
		HistoryPath: v.GetString("history"),
		LogFormat:   strings.ToLower(v.GetString("log_format")),
		LogLevel:    strings.ToLower(v.GetString("log_level")),
		Quiet:       v.GetBool("quiet"),
		Debounce:    v.GetDuration("debounce"),
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return cfg, nil
}

// withApp loads the pipeline for one command invocation and closes it
// afterwards.
func withApp(v *viper.Viper, cmd *cobra.Command, args []string, fn func(*app.App) error) error {
	cfg, err := newConfig(v, args)
	if err != nil {
		return err
	}
	a, err := app.NewApp(cmd.ErrOrStderr(), cfg, hcl_adapter.NewLoader())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func durationFlag(cmd *cobra.Command, v *viper.Viper, name string) {
	cmd.Flags().Duration(name, watch.DefaultDebounce, "Quiet period before a batch of changes triggers a rebuild.")
	_ = v.BindPFlag(name, cmd.Flags().Lookup(name))
}
