package export

import (
	"slices"

	"github.com/Veraticus/merchctl/internal/model"
)

// ReturnsCohortColumns is the flat cohort layout: one row per order month and
// return month pair.
var ReturnsCohortColumns = []string{
	"order_month", "return_month", "orders", "returns_units", "return_units", "rto_units",
}

// CohortMetrics are the unit columns a cohort can be read by.
var CohortMetrics = []string{"returns_units", "return_units", "rto_units"}

// DefaultCohortMetric counts customer returns only.
const DefaultCohortMetric = "return_units"

// IsCohortMetric reports whether m is one of CohortMetrics.
func IsCohortMetric(m string) bool {
	return slices.Contains(CohortMetrics, m)
}

type cohortCells map[[2]string]model.Row

func indexCohort(rows []model.Row) (orderMonths, returnMonths []string, cells cohortCells) {
	cells = make(cohortCells, len(rows))
	for _, r := range rows {
		om, rm := r.Text("order_month"), r.Text("return_month")
		if !slices.Contains(orderMonths, om) {
			orderMonths = append(orderMonths, om)
		}
		if !slices.Contains(returnMonths, rm) {
			returnMonths = append(returnMonths, rm)
		}
		cells[[2]string{om, rm}] = r
	}
	slices.Sort(orderMonths)
	slices.Sort(returnMonths)
	return orderMonths, returnMonths, cells
}

// CohortPivot lays the cohort out as order months by return months, each cell
// holding metric. Missing pairs are 0. The first column is "order_month"; the rest
// are the sorted return months.
func CohortPivot(rows []model.Row, metric string) ([]string, []model.Row) {
	orderMonths, returnMonths, cells := indexCohort(rows)

	columns := append([]string{"order_month"}, returnMonths...)
	out := make([]model.Row, len(orderMonths))
	for i, om := range orderMonths {
		row := model.Row{"order_month": om}
		for _, rm := range returnMonths {
			row[rm] = cells[[2]string{om, rm}].Count(metric)
		}
		out[i] = row
	}
	return columns, out
}

// CohortSameMonthColumns is the layout of CohortSameMonth.
var CohortSameMonthColumns = []string{"order_month", "selected", "return_units", "rto_units", "returns_units"}

// CohortSameMonth keeps the diagonal of the cohort: returns that came back in the
// month they were ordered. "selected" repeats metric.
func CohortSameMonth(rows []model.Row, metric string) []model.Row {
	orderMonths, _, cells := indexCohort(rows)

	out := make([]model.Row, len(orderMonths))
	for i, om := range orderMonths {
		r := cells[[2]string{om, om}]
		out[i] = model.Row{
			"order_month":   om,
			"selected":      r.Count(metric),
			"return_units":  r.Count("return_units"),
			"rto_units":     r.Count("rto_units"),
			"returns_units": r.Count("returns_units"),
		}
	}
	return out
}
