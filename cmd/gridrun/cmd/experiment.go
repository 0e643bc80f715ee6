package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mediseg/gridrun/model/prior"
)

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <experiment>",
		Short: "Load an experiment document and check its hyperparameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			experiment, err := a.engine.Runtime().LoadExperiment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			mode := "supervised"
			if experiment.SemiSupervised() {
				mode = "semi-supervised"
			}
			a.logger.Info("experiment is valid",
				zap.String("name", experiment.Name),
				zap.String("dataset", experiment.Dataset.Name),
				zap.String("mode", mode),
				zap.Int("iterations", experiment.Train.Iterations))
			if !experiment.SemiSupervised() {
				return nil
			}

			// report the threshold distributions the trainer will start from,
			// using the configured prior as the stand-in for learned statistics
			train := &experiment.Train
			modes := train.ThresholdModes()
			resolvedPrior := modes.ResolvePrior(train.ThresholdPrior(), train.PriMu)
			posterior := modes.ResolvePosterior(train.ThresholdPrior(), resolvedPrior, train.PriMu)
			a.logger.Info("pseudo-label threshold",
				zap.Float64("prior_mu", resolvedPrior.Mu),
				zap.Float64("prior_std", resolvedPrior.Std),
				zap.Float64("posterior_mu", posterior.Mu),
				zap.Float64("posterior_std", posterior.Std),
				zap.Float64("kl", prior.KL(posterior, resolvedPrior)),
				zap.Float64("threshold", prior.ClampThreshold(posterior.Mu, train.ConfLower)),
				zap.Bool("learned", modes.LearnsPosterior()))

			alpha, err := train.AlphaRamp()
			if err != nil {
				return err
			}
			beta, err := train.BetaRamp()
			if err != nil {
				return err
			}
			a.logger.Info("loss weight warmup",
				zap.Float64("alpha", alpha.Target),
				zap.Float64("beta", beta.Target),
				zap.Int("full_from", alpha.FullFrom()))
			return nil
		},
	}
}

func newScriptCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "script <experiment>",
		Short: "Render the grid-engine job script without submitting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := a.engine.Runtime().RenderScript(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), script)
			return nil
		},
	}
}
