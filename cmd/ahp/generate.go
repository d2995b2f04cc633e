package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-ahp/internal/application"
	"github.com/ahrav/go-ahp/internal/testutils"
)

func generateCmd(opts *globalOptions) *cobra.Command {
	var (
		size   int
		seed   uint64
		outDir string
		cfg    = testutils.DefaultGeneratorConfig()
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic judgments",
		Long: "Generate draws hidden weights, derives noisy evaluator judgments from\n" +
			"them and writes a dataset plus one evaluate-ready input per set.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(opts)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}

			dataset := testutils.GenerateDataset(size, seed, cfg)
			datasetPath := filepath.Join(outDir, "dataset.json")
			if err := testutils.SaveDataset(dataset, datasetPath); err != nil {
				return err
			}

			for _, set := range dataset.Sets {
				path := filepath.Join(outDir, set.ID+".yaml")
				if err := writeInput(path, toInput(set)); err != nil {
					return err
				}
			}

			logger.Info("generated synthetic judgments",
				slog.String("dataset", datasetPath),
				slog.Int("sets", size),
				slog.Uint64("seed", seed))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&size, "sets", "n", 10, "number of criterion sets")
	flags.Uint64Var(&seed, "seed", 0, "random seed (time based when unset)")
	flags.StringVar(&outDir, "out", "testdata/generated", "output directory")
	flags.IntVar(&cfg.Items, "items", cfg.Items, "items per criterion set")
	flags.IntVar(&cfg.Evaluators, "evaluators", cfg.Evaluators, "evaluators per criterion set")
	flags.Float64Var(&cfg.Noise, "noise", cfg.Noise, "log-normal judgment noise")
	flags.Float64Var(&cfg.OutlierRate, "outlier-rate", cfg.OutlierRate, "probability an evaluator judges reversed weights")
	flags.BoolVar(&cfg.SaatyScale, "saaty-scale", cfg.SaatyScale, "snap judgments to the 1..9 scale")
	return cmd
}

func toInput(set testutils.SyntheticSet) application.CriterionSetInput {
	in := application.CriterionSetInput{
		ID:         set.ID,
		Items:      set.Items,
		Evaluators: make([]application.EvaluatorInput, len(set.Evaluators)),
	}
	for i, ev := range set.Evaluators {
		in.Evaluators[i] = application.EvaluatorInput{
			EvaluatorID: ev.EvaluatorID,
			Comparisons: ev.Comparisons,
		}
	}
	return in
}

func writeInput(path string, in application.CriterionSetInput) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create input file: %w", err)
	}
	if err := render(f, "yaml", in); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
