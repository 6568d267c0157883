package qna

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// DecodeSeries reads chart data as a list of series. A single object is
// accepted as a one-series chart.
func DecodeSeries(chartData string) ([]ChartSeries, error) {
	trimmed := strings.TrimSpace(chartData)
	if strings.HasPrefix(trimmed, "{") {
		var one ChartSeries
		if err := json.Unmarshal([]byte(trimmed), &one); err != nil {
			return nil, err
		}
		return []ChartSeries{one}, nil
	}
	var many []ChartSeries
	if err := json.Unmarshal([]byte(trimmed), &many); err != nil {
		return nil, err
	}
	return many, nil
}

// CheckSeries reports shape problems a model is likely to trip over. Nothing
// here blocks a generation.
func CheckSeries(series []ChartSeries) []string {
	var warnings []string
	if len(series) == 0 {
		return []string{"chart data has no series"}
	}
	first := series[0].Category
	for i, s := range series {
		name := seriesName(i, s)
		if len(s.Category) == 0 {
			warnings = append(warnings, name+": empty category")
		}
		if i > 0 && !slices.Equal(s.Category, first) {
			warnings = append(warnings, name+": category differs from the first series")
		}
		if len(s.DataLabel) != len(s.Legend) {
			warnings = append(warnings, fmt.Sprintf("%s: %d data_label rows for %d legend entries", name, len(s.DataLabel), len(s.Legend)))
		}
		for j, row := range s.DataLabel {
			if len(row) != len(s.Category) {
				warnings = append(warnings, fmt.Sprintf("%s: data_label row %d has %d values for %d categories", name, j, len(row), len(s.Category)))
			}
		}
		if strings.TrimSpace(s.Unit) == "" {
			warnings = append(warnings, name+": missing unit")
		}
	}
	return warnings
}

func seriesName(i int, s ChartSeries) string {
	if len(s.Legend) > 0 && strings.TrimSpace(s.Legend[0]) != "" {
		return fmt.Sprintf("series %d (%s)", i+1, s.Legend[0])
	}
	return fmt.Sprintf("series %d", i+1)
}
