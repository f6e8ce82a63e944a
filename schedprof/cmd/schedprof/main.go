package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yandex/schedprof/schedprof/internal/cli"
	"github.com/yandex/schedprof/schedprof/pkg/must"
	"github.com/yandex/schedprof/schedprof/pkg/xpflag"
)

var (
	configPath string
	logLevel   = xpflag.NewOneOf("info", cli.LogLevels...)

	rootCmd = &cobra.Command{
		Use:           "schedprof",
		Short:         "Build, validate and explore scheduling profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// makeCLI reads the config file, when given, and lets explicitly set flags override it.
func makeCLI(cmd *cobra.Command) (*cli.App, error) {
	conf := &cli.Config{}
	if configPath != "" {
		var err error
		conf, err = cli.ParseConfig(configPath, true)
		if err != nil {
			return nil, err
		}
	}
	if conf.LogLevel == "" || cmd.Flags().Changed("log-level") {
		conf.LogLevel = logLevel.String()
	}

	app, err := cli.New(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize CLI: %w", err)
	}
	return app, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML config")
	rootCmd.PersistentFlags().Var(logLevel, "log-level", "Logging level, one of "+logLevel.Variants())
	must.Must(rootCmd.MarkPersistentFlagFilename("config", "yaml", "yml"))
	must.Must(rootCmd.RegisterFlagCompletionFunc("log-level", logLevel.Complete))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
