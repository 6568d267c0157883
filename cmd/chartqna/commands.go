package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/chartqna/internal/app"
	"github.com/yungbote/chartqna/internal/config"
	"github.com/yungbote/chartqna/internal/platform/logger"
	"github.com/yungbote/chartqna/internal/qna"
	"github.com/yungbote/chartqna/internal/router"
	"github.com/yungbote/chartqna/internal/sanitize"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "chartqna",
		Short:        "Generate question/reasoning/answer sets from chart data",
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCmd(),
		newGenerateCmd(),
		newSanitizeCmd(),
		newModelsCmd(),
		newPromptCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				a.Close(ctx)
			}()
			return a.Run(cmd.Context())
		},
	}
}

// components is the non-HTTP wiring the one-shot commands share.
type components struct {
	cfg    *config.Config
	log    *logger.Logger
	router *router.Router
}

func loadComponents() (*components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	r, err := router.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	return &components{cfg: cfg, log: log, router: r}, nil
}

func newGenerateCmd() *cobra.Command {
	var (
		chartPath  string
		promptPath string
		model      string
		outPath    string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one QA batch and write it as JSON",
		Long: `Reads chart data (a JSON array of series sharing one category axis),
substitutes it into the prompt template, calls the model once and writes
the resulting QA list to --out. Without --chart the built-in example chart
is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadComponents()
			if err != nil {
				return err
			}
			defer c.log.Sync()

			chart := qna.ExampleChartData
			if chartPath != "" {
				b, err := readInput(cmd, chartPath)
				if err != nil {
					return err
				}
				chart = string(b)
			}
			if promptPath == "" {
				promptPath = c.cfg.PromptPath
			}
			tmpl, err := qna.LoadTemplate(promptPath)
			if err != nil {
				return err
			}
			if model == "" {
				model = c.cfg.DefaultModel
			}

			gen := qna.NewGenerator(c.router, c.log)
			if err := gen.Preflight(model, tmpl); err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			if series, err := qna.DecodeSeries(chart); err == nil {
				for _, w := range qna.CheckSeries(series) {
					fmt.Fprintf(stderr, "chart warning: %s\n", w)
				}
			}

			res := gen.Generate(cmd.Context(), qna.Request{Template: tmpl, ChartData: chart, Model: model})
			if !res.OK() {
				fmt.Fprintf(stderr, "generation failed (%s): %s\n", res.Failure.Kind, res.Failure.Message)
				if res.Failure.RawOutput != "" {
					fmt.Fprintf(stderr, "\nraw model output:\n%s\n\nrepair it and run `chartqna sanitize` to check.\n", res.Failure.RawOutput)
				}
				return errors.New(res.Failure.Message)
			}

			out := cmd.OutOrStdout()
			renderResult(out, res)

			b, err := qna.MarshalExport(res)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, append(b, '\n'), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(out, "\nwrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&chartPath, "chart", "", "chart data JSON file, - for stdin (default: built-in example)")
	cmd.Flags().StringVar(&promptPath, "prompt", "", "prompt template file containing "+qna.Placeholder)
	cmd.Flags().StringVar(&model, "model", "", "model id (default: configured default_model)")
	cmd.Flags().StringVarP(&outPath, "out", "o", qna.ExportFilename, "output file")
	return cmd
}

// renderResult prints a success the way an analyst reads it.
func renderResult(w io.Writer, res qna.Result) {
	if res.Grouped() {
		for i, it := range res.Items {
			fmt.Fprintf(w, "Q%d. %s\n", i+1, it.Question)
			fmt.Fprintf(w, "    type: %s - %s\n", orNA(it.ReasoningType), orNA(it.ReasoningSubtype))
			for j, step := range it.Reasoning {
				fmt.Fprintf(w, "    %d. %s\n", j+1, step)
			}
			fmt.Fprintf(w, "    answer: %s\n\n", it.Answer)
		}
	} else {
		fmt.Fprintf(w, "ungrouped response:\n%s\n\n", string(res.Raw))
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	fmt.Fprintln(w, res.Usage.Summary())
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return qna.NotAvailable
	}
	return s
}

func newSanitizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize [FILE]",
		Short: "Clean a model response into strict JSON (reads stdin without FILE)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			b, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			cleaned, err := sanitize.Sanitize(string(b))
			if err != nil {
				var mre *sanitize.MalformedResponseError
				if errors.As(err, &mre) {
					fmt.Fprintf(cmd.ErrOrStderr(), "after cleaning:\n%s\n", mre.Text)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cleaned)
			return nil
		},
	}
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured models and their rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadComponents()
			if err != nil {
				return err
			}
			defer c.log.Sync()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tINPUT $/1M\tOUTPUT $/1M\tCREDENTIAL\t")
			for _, id := range c.router.ListModels() {
				route, _ := c.router.RouteForModel(id)
				name := id
				if id == c.cfg.DefaultModel {
					name += " (default)"
				}
				in, out := "-", "-"
				if route.Priced {
					in = fmt.Sprintf("%.2f", route.Rate.InputPerMillion())
					out = fmt.Sprintf("%.2f", route.Rate.OutputPerMillion())
				}
				cred := "n/a"
				if route.NeedsCredential {
					cred = "missing"
					if route.APIKey != "" {
						cred = "ok"
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", name, in, out, cred)
			}
			return tw.Flush()
		},
	}
}

func newPromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Print the prompt template in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tmpl, err := qna.LoadTemplate(cfg.PromptPath)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), tmpl)
			return err
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}
