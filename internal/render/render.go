// Package render prints API answers for a terminal: metric cards for
// summary statistics, indented JSON for everything else, and text charts.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bryanwahyu/datalens/internal/analytics/preprocess"
	"github.com/bryanwahyu/datalens/internal/domain/analyses"
	"github.com/bryanwahyu/datalens/internal/domain/datasets"
	"github.com/bryanwahyu/datalens/internal/domain/taskerrors"
)

var statNames = []string{"mean", "median", "mode", "std_dev", "variance", "min", "max"}

func statRank(key string) int {
	k := strings.ToLower(key)
	for i, s := range statNames {
		if s == k {
			return i
		}
	}
	return -1
}

// HasStats reports whether res has at least one summary-statistic key.
func HasStats(res map[string]any) bool {
	for k := range res {
		if statRank(k) >= 0 {
			return true
		}
	}
	return false
}

// StatKeys returns the summary-statistic keys of res in card order.
func StatKeys(res map[string]any) []string {
	var keys []string
	for k := range res {
		if statRank(k) >= 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := statRank(keys[i]), statRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}

var titler = cases.Title(language.Und, cases.NoLower)

// FormatKey turns "standard_deviation" into "Standard Deviation".
func FormatKey(key string) string {
	return titler.String(strings.ReplaceAll(key, "_", " "))
}

// Value formats one JSON value for a card or a table cell.
func Value(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Sprint(t)
		}
		return humanize.FtoaWithDigits(t, 4)
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = Value(e)
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// Result prints res as cards when it carries summary statistics and as
// indented JSON otherwise.
func Result(w io.Writer, res map[string]any) error {
	if !HasStats(res) {
		return JSON(w, res)
	}
	if title, ok := res["task"].(string); ok {
		fmt.Fprintln(w, title)
	}
	if col, ok := res["column"].(string); ok {
		fmt.Fprintf(w, "Column: %s\n", col)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range StatKeys(res) {
		fmt.Fprintf(tw, "  %s\t%s\n", FormatKey(k), Value(res[k]))
	}
	return tw.Flush()
}

func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Bar is one histogram bucket.
type Bar struct {
	Name  string
	Value int
}

// Series is a named list of scatter points.
type Series struct {
	Name   string
	Points []preprocess.Point
}

// convert re-decodes a generic JSON value into a typed one.
func convert(in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// HistogramBars pairs chart_data labels with counts.
func HistogramBars(chartData any) ([]Bar, error) {
	var h preprocess.HistogramData
	if err := convert(chartData, &h); err != nil {
		return nil, fmt.Errorf("histogram data: %w", err)
	}
	if len(h.Labels) != len(h.Counts) {
		return nil, fmt.Errorf("histogram data: %d labels for %d counts", len(h.Labels), len(h.Counts))
	}
	bars := make([]Bar, len(h.Labels))
	for i := range h.Labels {
		bars[i] = Bar{Name: h.Labels[i], Value: h.Counts[i]}
	}
	return bars, nil
}

// ScatterSeries names the points "<column1> vs <column2>".
func ScatterSeries(column1, column2 string, chartData any) (Series, error) {
	var pts []preprocess.Point
	if err := convert(chartData, &pts); err != nil {
		return Series{}, fmt.Errorf("scatter data: %w", err)
	}
	return Series{Name: column1 + " vs " + column2, Points: pts}, nil
}

const barWidth = 40

// Chart draws a visualization result. column1 and column2 name the scatter
// axes.
func Chart(w io.Writer, res map[string]any, column1, column2 string) error {
	switch res["chart_type"] {
	case preprocess.ChartHistogram:
		bars, err := HistogramBars(res["chart_data"])
		if err != nil {
			return err
		}
		peak := 0
		for _, b := range bars {
			peak = max(peak, b.Value)
		}
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		for _, b := range bars {
			n := 0
			if peak > 0 {
				n = b.Value * barWidth / peak
			}
			fmt.Fprintf(tw, "%s\t|%s %d\n", b.Name, strings.Repeat("#", n), b.Value)
		}
		return tw.Flush()
	case preprocess.ChartScatter:
		s, err := ScatterSeries(column1, column2, res["chart_data"])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, s.Name)
		fmt.Fprintln(w, "x,y")
		for _, p := range s.Points {
			fmt.Fprintf(w, "%s,%s\n", humanize.Ftoa(p.X), humanize.Ftoa(p.Y))
		}
		return nil
	}
	return JSON(w, res)
}

// Preview prints the header and rows as an aligned table.
func Preview(w io.Writer, p *datasets.PreviewResponse) error {
	fmt.Fprintf(w, "%s (%d rows shown)\n", p.Filename, len(p.Data))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(p.Header, "\t"))
	for _, row := range p.Data {
		cells := make([]string, len(p.Header))
		for i, h := range p.Header {
			cells[i] = row[h]
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// Datasets lists datasets and marks the selected filename with "*".
func Datasets(w io.Writer, list []datasets.Dataset, selected string) error {
	if len(list) == 0 {
		fmt.Fprintln(w, "(no datasets)")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tFILENAME\tUPLOADED\tCOLUMNS")
	for _, d := range list {
		mark := ""
		if d.Filename == selected {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\n", mark, d.ID, d.Filename, d.UploadDate.UTC().Format("2006-01-02 15:04"), len(d.Columns))
	}
	return tw.Flush()
}

// History prints the analyses of one dataset, newest first as received.
func History(w io.Writer, list []analyses.Analysis) error {
	if len(list) == 0 {
		fmt.Fprintln(w, "(no analyses)")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTASK\tDATE\tPARAMETERS")
	for _, a := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", a.ID, a.TaskName, a.AnalysisDate.UTC().Format("2006-01-02 15:04:05"), compact(a.TaskParameters, 60))
	}
	return tw.Flush()
}

// TaskErrors prints failed runs of one dataset.
func TaskErrors(w io.Writer, list []taskerrors.TaskError) error {
	if len(list) == 0 {
		fmt.Fprintln(w, "(no errors)")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTASK\tWHEN\tMESSAGE")
	for _, e := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.TaskName, e.CreatedAt.UTC().Format("2006-01-02 15:04:05"), e.Message)
	}
	return tw.Flush()
}

func compact(raw json.RawMessage, limit int) string {
	s := strings.Join(strings.Fields(string(raw)), " ")
	if len(s) > limit {
		return s[:limit-3] + "..."
	}
	return s
}
