package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/stackwright/stackwright/pkg/logging"
)

var rootCfg struct {
	verbose   bool
	color     string
	logFormat string
}

func setupLoggingFlags(flags *pflag.FlagSet) {
	flags.BoolVarP(&rootCfg.verbose, "verbose", "v", false, "Verbose flag")
	flags.StringVar(&rootCfg.color, "color", "auto", "Colorize output (auto, always, never)")
	flags.StringVar(&rootCfg.logFormat, "log-format", "console", "Log format (console, json)")
}

func cli() error {
	rootCmd := &cobra.Command{
		Use:          "stackwright",
		Short:        "Synthesize construct trees into CloudFormation assemblies",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logOpts := logging.Opts{
				Verbose:  rootCfg.verbose,
				Color:    rootCfg.color,
				Encoding: rootCfg.logFormat,
			}
			zap.ReplaceGlobals(logOpts.NewLogger())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = zap.L().Sync()
		},
	}
	setupLoggingFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(newSynthCmd())

	return rootCmd.Execute()
}

func main() {
	if err := cli(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
