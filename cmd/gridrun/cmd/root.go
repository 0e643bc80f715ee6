// Package cmd implements the gridrun command line interface.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mediseg/gridrun"
	"github.com/mediseg/gridrun/service/messaging"
)

type app struct {
	logger *zap.Logger
	engine *gridrun.Service

	workspace    string
	launcher     string
	submitHost   string
	queueVendor  string
	metaBaseURL  string
	pollInterval time.Duration
	verbose      bool
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "gridrun",
		Short:         "Submit and track segmentation training experiments on a grid-engine cluster",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.workspace, "workspace", "w", defaultWorkspace(), "directory holding run records and rendered scripts")
	flags.StringVarP(&a.launcher, "launcher", "l", "gridengine", "default submission backend (gridengine, local)")
	flags.StringVar(&a.submitHost, "submit-host", "", "host where qsub runs; empty for the local shell")
	flags.StringVar(&a.queueVendor, "queue", "memory", "poll queue vendor (memory, fs)")
	flags.StringVar(&a.metaBaseURL, "experiments", "", "base URL experiment locations resolve against")
	flags.DurationVar(&a.pollInterval, "poll-interval", 15*time.Second, "time between scheduler sweeps")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newValidateCommand(a),
		newScriptCommand(a),
		newSubmitCommand(a),
		newStatusCommand(a),
		newListCommand(a),
		newCancelCommand(a),
		newResumeCommand(a),
		newWatchCommand(a),
	)
	return root
}

func (a *app) init() error {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if a.verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	a.logger = logger

	engineConfig := gridrun.DefaultConfig()
	engineConfig.Workspace = a.workspace
	engineConfig.Launcher = a.launcher
	engineConfig.QueueVendor = messaging.Vendor(a.queueVendor)
	engineConfig.Monitor.PollInterval = a.pollInterval
	engineConfig.GridEngine.SubmitHost = a.submitHost
	if err := engineConfig.Validate(); err != nil {
		return err
	}

	a.engine = gridrun.New(
		gridrun.WithConfig(engineConfig),
		gridrun.WithMetaBaseURL(a.metaBaseURL),
		gridrun.WithLogger(a.logger),
	)
	return nil
}

func defaultWorkspace() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.gridrun"
	}
	return ".gridrun"
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
