// Package charts turns chart rows into ECharts option documents. It is
// pure presentation: no persistence, no network, safe to call repeatedly.
// Callers render a placeholder instead of asking for options when the
// row set is empty.
package charts

import (
	"encoding/json"

	"jizhang/internal/core"
)

// Option is an ECharts option document. Built as a plain map so it
// serializes straight into the schema the frontend library expects.
type Option map[string]any

// Set bundles the three chart views of the statistics page.
type Set struct {
	Line Option
	Pie  Option
	Bar  Option
}

// Build derives the line, pie and bar options from chart rows. Long
// periods rotate the x-axis labels so a year of dates stays readable.
func Build(rows []core.ChartRow, period core.Period) Set {
	dates := core.BucketByDate(rows)
	methods := core.BucketByMethod(rows)
	rotate := 0
	if period == core.PeriodMonth || period == core.PeriodYear {
		rotate = 45
	}
	return Set{
		Line: lineOption(dates, rotate),
		Pie:  pieOption(methods),
		Bar:  barOption(dates, rotate),
	}
}

// JSON renders an option for embedding into a template script tag.
func (o Option) JSON() (string, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func lineOption(buckets []core.DateBucket, rotate int) Option {
	return Option{
		"title":   map[string]any{"text": "消费趋势", "left": "center"},
		"tooltip": map[string]any{"trigger": "axis"},
		"grid":    map[string]any{"left": "5%", "right": "5%", "bottom": "10%", "containLabel": true},
		"xAxis":   map[string]any{"type": "category", "data": bucketDates(buckets), "axisLabel": map[string]any{"rotate": rotate}},
		"yAxis":   map[string]any{"type": "value"},
		"series": []any{map[string]any{
			"type":      "line",
			"smooth":    true,
			"data":      bucketAmounts(buckets),
			"itemStyle": map[string]any{"color": "#3b82f6"},
			"areaStyle": map[string]any{"opacity": 0.2},
		}},
	}
}

func pieOption(buckets []core.MethodBucket) Option {
	data := make([]any, 0, len(buckets))
	for _, b := range buckets {
		data = append(data, map[string]any{
			"name":  b.Method,
			"value": core.Money{Fen: b.AmountFen}.Yuan(),
		})
	}
	return Option{
		"title":   map[string]any{"text": "支付方式占比", "left": "center"},
		"tooltip": map[string]any{"trigger": "item", "formatter": "{a} <br/>{b}: ¥{c} ({d}%)"},
		"legend":  map[string]any{"orient": "vertical", "left": "left"},
		"series": []any{map[string]any{
			"name":   "支付方式",
			"type":   "pie",
			"radius": "60%",
			"data":   data,
		}},
	}
}

func barOption(buckets []core.DateBucket, rotate int) Option {
	return Option{
		"title":   map[string]any{"text": "消费金额统计", "left": "center"},
		"tooltip": map[string]any{"trigger": "axis"},
		"grid":    map[string]any{"left": "5%", "right": "5%", "bottom": "10%", "containLabel": true},
		"xAxis":   map[string]any{"type": "category", "data": bucketDates(buckets), "axisLabel": map[string]any{"rotate": rotate}},
		"yAxis":   map[string]any{"type": "value"},
		"series": []any{map[string]any{
			"type":      "bar",
			"data":      bucketAmounts(buckets),
			"itemStyle": map[string]any{"color": "#10b981"},
		}},
	}
}

func bucketDates(buckets []core.DateBucket) []string {
	out := make([]string, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.Date)
	}
	return out
}

func bucketAmounts(buckets []core.DateBucket) []float64 {
	out := make([]float64, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, core.Money{Fen: b.AmountFen}.Yuan())
	}
	return out
}
