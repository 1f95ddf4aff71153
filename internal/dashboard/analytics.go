package dashboard

import (
	"reflect"
	"sort"

	"github.com/shopspring/decimal"
)

// Point is one bar/slice of a chart.
type Point struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// CountBy counts items per distinct value of field, sorted by label.
// Items without the field are counted under "unknown".
func CountBy[T any](items []T, field string) []Point {
	counts := map[string]int64{}
	for _, item := range items {
		counts[labelOf(item, field)]++
	}
	out := make([]Point, 0, len(counts))
	for label, n := range counts {
		out = append(out, Point{Label: label, Value: decimal.NewFromInt(n)})
	}
	sortPoints(out)
	return out
}

// SumBy sums valueField per distinct groupField value. Values may be
// numbers, decimals or numeric strings; anything else counts as zero.
func SumBy[T any](items []T, groupField, valueField string) []Point {
	sums := map[string]decimal.Decimal{}
	for _, item := range items {
		label := labelOf(item, groupField)
		sums[label] = sums[label].Add(decimalOf(item, valueField))
	}
	out := make([]Point, 0, len(sums))
	for label, total := range sums {
		out = append(out, Point{Label: label, Value: total})
	}
	sortPoints(out)
	return out
}

func labelOf(item interface{}, field string) string {
	fv, ok := lookup(reflect.ValueOf(item), field)
	if !ok {
		return "unknown"
	}
	if s := format(fv); s != "" {
		return s
	}
	return "unknown"
}

func decimalOf(item interface{}, field string) decimal.Decimal {
	fv, ok := lookup(reflect.ValueOf(item), field)
	if !ok {
		return decimal.Zero
	}
	if d, ok := fv.Interface().(decimal.Decimal); ok {
		return d
	}
	if f, ok := numeric(fv); ok {
		return decimal.NewFromFloat(f)
	}
	if d, err := decimal.NewFromString(format(fv)); err == nil {
		return d
	}
	return decimal.Zero
}

func sortPoints(points []Point) {
	sort.Slice(points, func(i, j int) bool { return points[i].Label < points[j].Label })
}
