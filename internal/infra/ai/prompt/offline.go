package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bryanwahyu/datalens/internal/domain/ai"
)

// Offline explains results with fixed templates. It needs no API key and is
// used when no LLM provider is configured.
type Offline struct{}

var _ ai.Explainer = Offline{}

func (Offline) Explain(_ context.Context, taskName string, _, result json.RawMessage) (string, error) {
	var res map[string]any
	if err := json.Unmarshal(result, &res); err != nil {
		return "", fmt.Errorf("decode result: %w", err)
	}
	return Summarize(taskName, res), nil
}

// Summarize renders the headline figures of a task result as sentences.
func Summarize(taskName string, res map[string]any) string {
	var out []string
	add := func(format string, args ...any) { out = append(out, fmt.Sprintf(format, args...)) }

	title := taskName
	if t, ok := res["task"].(string); ok && t != "" {
		title = t
	}
	add("%s finished.", title)

	if col, ok := res["column"].(string); ok {
		if v, ok := num(res["mean"]); ok {
			add("Column %s has a mean of %s and a median of %s.", col, fmtNum(v), fmtAny(res["median"]))
		}
		if v, ok := num(res["standard_deviation"]); ok {
			add("Values in %s spread with a standard deviation of %s (variance %s).", col, fmtNum(v), fmtAny(res["variance"]))
		}
	}
	if r, ok := num(res["correlation_coefficient"]); ok {
		add("The two columns show a %s %s relationship (r = %s).", strength(r), direction(r), fmtNum(r))
	}
	if chi, ok := num(res["chi_square_statistic"]); ok {
		add("The chi-square statistic is %s with %s degrees of freedom.", fmtNum(chi), fmtAny(res["degrees_of_freedom"]))
	}
	if before, ok := num(res["rows_before"]); ok {
		add("Cleaning kept %s of %s rows.", fmtAny(res["rows_after"]), fmtNum(before))
	}
	if rows, ok := res["processed_data"].([]any); ok {
		add("%d transformed rows are included in the result.", len(rows))
	}
	if acc, ok := num(res["accuracy"]); ok {
		add("On the held-out rows the model was right %s%% of the time.", fmtNum(acc))
	}
	if p, ok := res["prediction"]; ok {
		add("The predicted class for the test instance is %s.", fmtAny(p))
	}
	if m, ok := res["model"].(map[string]any); ok {
		if b1, ok := num(m["B1_slope"]); ok {
			add("Each unit increase in the independent attribute changes the dependent one by %s (intercept %s).", fmtNum(b1), fmtAny(m["B0_intercept"]))
		}
	}
	if sizes, ok := res["cluster_sizes"].([]any); ok {
		parts := make([]string, len(sizes))
		for i, s := range sizes {
			parts[i] = fmtAny(s)
		}
		add("The rows form %d clusters of sizes %s.", len(sizes), strings.Join(parts, ", "))
	}
	if rules, ok := res["rules"].([]any); ok {
		add("%d association rules met the confidence threshold.", len(rules))
	}
	if ranking, ok := res["ranking"].([]any); ok && len(ranking) > 0 {
		if top, ok := ranking[0].(map[string]any); ok {
			add("The highest ranked node is %s with a score of %s.", fmtAny(top["node"]), fmtAny(top["score"]))
		}
	}

	if len(out) == 1 {
		keys := make([]string, 0, len(res))
		for k := range res {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		add("The result contains: %s.", strings.Join(keys, ", "))
	}
	return strings.Join(out, " ")
}

func num(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func fmtNum(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", f), "0"), ".")
}

func fmtAny(v any) string {
	switch t := v.(type) {
	case float64:
		return fmtNum(t)
	case nil:
		return "n/a"
	case string:
		return t
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func strength(r float64) string {
	switch a := math.Abs(r); {
	case a >= 0.7:
		return "strong"
	case a >= 0.3:
		return "moderate"
	}
	return "weak"
}

func direction(r float64) string {
	if r < 0 {
		return "negative"
	}
	return "positive"
}
