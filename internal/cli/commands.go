package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/datalens/internal/analytics"
	"github.com/bryanwahyu/datalens/internal/analytics/mining"
	"github.com/bryanwahyu/datalens/internal/application/tasks"
	"github.com/bryanwahyu/datalens/internal/client"
	"github.com/bryanwahyu/datalens/internal/render"
)

func (a *app) datasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List uploaded datasets; * marks the selected one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.client.ListDatasets(cmd.Context())
			if err != nil {
				return err
			}
			return render.Datasets(a.out, list, a.state.Filename)
		},
	}
}

// selectDataset stores filename as the selection once the server lists it.
func (a *app) selectDataset(cmd *cobra.Command, filename string) error {
	list, err := a.client.ListDatasets(cmd.Context())
	if err != nil {
		return err
	}
	for _, d := range list {
		if d.Filename == filename {
			a.state.Filename, a.state.DatasetID = d.Filename, int64(d.ID)
			if err := a.state.Save(a.cfg.StateFile); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Selected %s (id %d)\n", d.Filename, d.ID)
			return nil
		}
	}
	return fmt.Errorf("dataset %q not found on the server", filename)
}

func (a *app) useCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <filename>",
		Short: "Select the dataset later commands work on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.selectDataset(cmd, args[0])
		},
	}
}

func (a *app) uploadCmd() *cobra.Command {
	var use bool
	cmd := &cobra.Command{
		Use:   "upload <file.csv>",
		Short: "Upload a CSV file and preview it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := a.client.Upload(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, res.Message)
			name, err := client.FilenameFromURL(res.FileURL)
			if err != nil {
				return err
			}
			if use {
				if err := a.selectDataset(cmd, name); err != nil {
					return err
				}
			}
			p, err := a.client.Preview(cmd.Context(), name)
			if err != nil {
				return err
			}
			return render.Preview(a.out, p)
		},
	}
	cmd.Flags().BoolVar(&use, "use", false, "select the uploaded dataset")
	return cmd
}

func (a *app) previewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview [filename]",
		Short: "Show the header and first rows of a dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			} else {
				var err error
				if name, _, err = a.selected(cmd); err != nil {
					return err
				}
			}
			p, err := a.client.Preview(cmd.Context(), name)
			if err != nil {
				return err
			}
			return render.Preview(a.out, p)
		},
	}
}

// paramFlags are the shared --param/--params flags of task commands.
type paramFlags struct {
	pairs []string
	raw   string
}

func (p *paramFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&p.pairs, "param", "p", nil, "task parameter key=value (repeatable)")
	cmd.Flags().StringVar(&p.raw, "params", "", "task parameters as a JSON object")
}

func (p *paramFlags) build() (analytics.Params, error) {
	out := analytics.Params{}
	if p.raw != "" {
		if err := json.Unmarshal([]byte(p.raw), &out); err != nil {
			return nil, fmt.Errorf("--params is not a JSON object: %w", err)
		}
	}
	kv, err := parsePairs(p.pairs, "--param")
	if err != nil {
		return nil, err
	}
	for k, v := range kv {
		out[k] = v
	}
	return out, nil
}

func parsePairs(pairs []string, flag string) (map[string]any, error) {
	out := map[string]any{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%s %q: want key=value", flag, pair)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}

func (a *app) taskCmd(use, short string, check func(task string) error) *cobra.Command {
	var (
		column, column1, column2 string
		params                   paramFlags
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename, _, err := a.selected(cmd)
			if err != nil {
				return err
			}
			if err := check(args[0]); err != nil {
				return err
			}
			p, err := params.build()
			if err != nil {
				return err
			}
			res, err := a.client.Process(cmd.Context(), tasks.ProcessRequest{
				Filename: filename,
				Task:     args[0],
				Column:   column,
				Column1:  column1,
				Column2:  column2,
				Params:   p,
			})
			if err != nil {
				return err
			}
			if _, ok := res["chart_type"]; ok {
				return render.Chart(a.out, res, column1, column2)
			}
			return render.Result(a.out, res)
		},
	}
	cmd.Flags().StringVarP(&column, "column", "c", "", "column for single-column tasks")
	cmd.Flags().StringVar(&column1, "column1", "", "first column for two-column tasks")
	cmd.Flags().StringVar(&column2, "column2", "", "second column for two-column tasks")
	params.bind(cmd)
	return cmd
}

func (a *app) processCmd() *cobra.Command {
	return a.taskCmd("process <task>", "Run a preprocessing or visualization task on the selected dataset",
		func(string) error { return nil })
}

func (a *app) mineCmd() *cobra.Command {
	return a.taskCmd("mine <clustering|apriori|pagerank|hits>", "Run a mining task on the selected dataset",
		func(task string) error {
			if !mining.Supports(task) {
				return fmt.Errorf("unknown mining task %q", task)
			}
			return nil
		})
}

func (a *app) classifyCmd() *cobra.Command {
	var (
		target string
		test   []string
		params paramFlags
	)
	cmd := &cobra.Command{
		Use:   "classify <task>",
		Short: "Train a classifier or regression model on the selected dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename, _, err := a.selected(cmd)
			if err != nil {
				return err
			}
			p, err := params.build()
			if err != nil {
				return err
			}
			if target != "" {
				p["target_attribute"] = target
			}
			if len(test) > 0 {
				inst, err := parsePairs(test, "--test")
				if err != nil {
					return err
				}
				p["test_instance"] = inst
			}
			res, err := a.client.Classify(cmd.Context(), tasks.ClassifyRequest{Filename: filename, Task: args[0], Params: p})
			if err != nil {
				return err
			}
			return render.Result(a.out, res)
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "target attribute")
	cmd.Flags().StringArrayVar(&test, "test", nil, "test instance attribute=value (repeatable)")
	params.bind(cmd)
	return cmd
}

func (a *app) evaluateCmd() *cobra.Command {
	var (
		target   string
		testSize float64
		seed     int64
		params   paramFlags
	)
	cmd := &cobra.Command{
		Use:   "evaluate <task>",
		Short: "Score a classifier on a hold-out split of the selected dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename, _, err := a.selected(cmd)
			if err != nil {
				return err
			}
			p, err := params.build()
			if err != nil {
				return err
			}
			if target != "" {
				p["target_attribute"] = target
			}
			if cmd.Flags().Changed("test-size") {
				p["test_size"] = testSize
			}
			if cmd.Flags().Changed("seed") {
				p["seed"] = seed
			}
			res, err := a.client.Evaluate(cmd.Context(), tasks.ClassifyRequest{Filename: filename, Task: args[0], Params: p})
			if err != nil {
				return err
			}
			return render.Result(a.out, res)
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "target attribute")
	cmd.Flags().Float64Var(&testSize, "test-size", 0.2, "share of rows held out")
	cmd.Flags().Int64Var(&seed, "seed", 1, "shuffle seed")
	params.bind(cmd)
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List analyses run on the selected dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, id, err := a.selected(cmd)
			if err != nil {
				return err
			}
			list, err := a.client.Analyses(cmd.Context(), id)
			if err != nil {
				return err
			}
			return render.History(a.out, list)
		},
	}
}

func (a *app) errorsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "List failed task runs on the selected dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, id, err := a.selected(cmd)
			if err != nil {
				return err
			}
			list, err := a.client.Errors(cmd.Context(), id, limit)
			if err != nil {
				return err
			}
			return render.TaskErrors(a.out, list)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max rows")
	return cmd
}

func (a *app) explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <analysis-id>",
		Short: "Ask the server to explain a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid analysis id %q", args[0])
			}
			res, err := a.client.Explain(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, res.Explanation)
			return nil
		},
	}
}
