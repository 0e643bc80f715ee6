package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/dao"
	"github.com/mediseg/gridrun/service/event"
)

func newSubmitCommand(a *app) *cobra.Command {
	var launcherName string
	var wait bool
	cmd := &cobra.Command{
		Use:   "submit <experiment>",
		Short: "Submit an experiment as a cluster job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runtime := a.engine.Runtime()
			if err := runtime.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = runtime.Shutdown(ctx) }()

			run, err := runtime.Submit(ctx, args[0], launcherName)
			if err != nil {
				return err
			}
			a.logger.Info("submitted",
				zap.String("run", run.ID),
				zap.String("job", run.JobID),
				zap.String("launcher", run.Launcher))
			if !wait {
				return nil
			}
			final, err := runtime.WaitForRun(ctx, run.ID, 14*24*time.Hour)
			if err != nil {
				return err
			}
			a.logger.Info("finished", zap.String("run", final.ID), zap.String("state", string(final.State)))
			if final.State != model.RunStateCompleted {
				return fmt.Errorf("run %s %s: %s", final.ID, final.State, final.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&launcherName, "on", "", "launcher override for this submission")
	cmd.Flags().BoolVar(&wait, "wait", false, "block until the run reaches a terminal state")
	return cmd
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show one run record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := a.engine.Runtime().Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "run\t%s\n", run.ID)
			fmt.Fprintf(w, "state\t%s\n", run.State)
			fmt.Fprintf(w, "launcher\t%s\n", run.Launcher)
			fmt.Fprintf(w, "job\t%s\n", run.JobID)
			fmt.Fprintf(w, "experiment\t%s\n", run.ExperimentURL)
			fmt.Fprintf(w, "attempts\t%d\n", run.Attempts)
			if run.ScriptURL != "" {
				fmt.Fprintf(w, "script\t%s\n", run.ScriptURL)
			}
			if run.LastCheckpoint != "" {
				fmt.Fprintf(w, "checkpoint\t%s\n", run.LastCheckpoint)
			}
			if run.Error != "" {
				fmt.Fprintf(w, "error\t%s\n", run.Error)
			}
			return w.Flush()
		},
	}
}

func newListCommand(a *app) *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var parameters []*dao.Parameter
			if state != "" {
				parameters = append(parameters, dao.NewParameter("State", state))
			}
			runs, err := a.engine.Runtime().Runs(cmd.Context(), parameters...)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTATE\tJOB\tEXPERIMENT\tCREATED")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					run.ID, run.State, run.JobID, run.ExperimentURL,
					run.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "filter by run state")
	return cmd
}

func newCancelCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <run-id>",
		Short: "Remove a run's job from the scheduler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine.Runtime().Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.logger.Info("cancelled", zap.String("run", args[0]))
			return nil
		},
	}
}

func newResumeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Resubmit a failed run from its newest checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := a.engine.Runtime().Resume(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.logger.Info("resumed",
				zap.String("run", run.ID),
				zap.String("job", run.JobID),
				zap.Int("attempt", run.Attempts))
			return nil
		},
	}
}

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Track active runs and print state transitions until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runtime := a.engine.Runtime()

			err := event.SetListenerOf(runtime.Events(), func(e *event.Event[event.RunTransition]) {
				a.logger.Info("transition",
					zap.String("run", e.Data.RunID),
					zap.String("from", string(e.Data.From)),
					zap.String("to", string(e.Data.To)),
					zap.String("job", e.Data.JobID))
			})
			if err != nil {
				return err
			}
			if err := runtime.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = runtime.Shutdown(ctx) }()

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
			select {
			case <-ctx.Done():
			case <-signals:
			}
			return nil
		},
	}
}
