package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ahp/internal/application"
	"github.com/ahrav/go-ahp/internal/domain"
)

func evaluateCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "evaluate [input...]",
		Short: "Evaluate criterion sets",
		Long: "Evaluate reads one criterion set per file (YAML or JSON), derives every\n" +
			"evaluator's weights, checks consistency and prints the group consensus.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.flush(opts); err != nil {
					rt.logger.Error("failed to write metrics", slog.String("error", err.Error()))
				}
			}()

			results := make([]*application.Evaluation, 0, len(args))
			for _, path := range args {
				var in application.CriterionSetInput
				if err := (application.YAMLSource{Path: path}).Load(cmd.Context(), &in); err != nil {
					return err
				}

				ev, err := rt.engine.Evaluate(cmd.Context(), in)
				switch {
				case err == nil:
				case errors.Is(err, domain.ErrInsufficientData) && ev != nil:
					rt.logger.Warn("consensus needs at least two consistent evaluators",
						slog.String("input", path),
						slog.String("error", err.Error()))
				default:
					return fmt.Errorf("%s: %w", path, err)
				}
				results = append(results, ev)
			}

			if len(results) == 1 {
				return render(cmd.OutOrStdout(), format, results[0])
			}
			return render(cmd.OutOrStdout(), format, results)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "json", "output format: json or yaml")
	return cmd
}

func hierarchyCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "hierarchy [input]",
		Short: "Evaluate a criteria and alternatives hierarchy",
		Long: "Hierarchy weighs the criteria, weighs the alternatives under every\n" +
			"criterion and prints the synthesized global priorities.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.flush(opts); err != nil {
					rt.logger.Error("failed to write metrics", slog.String("error", err.Error()))
				}
			}()

			var in application.HierarchyInput
			if err := (application.YAMLSource{Path: args[0]}).Load(cmd.Context(), &in); err != nil {
				return err
			}
			res, err := rt.engine.EvaluateHierarchy(cmd.Context(), in)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, res)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "json", "output format: json or yaml")
	return cmd
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q: want json or yaml", format)
	}
}
