package core

import "sort"

// ChartRow is the narrow projection used for charting and statistics:
// one record's date (ISO form), amount, and payment method.
type ChartRow struct {
	Date          string
	AmountFen     int64
	PaymentMethod string
}

// Summary holds the aggregate statistics for a set of chart rows.
type Summary struct {
	TotalFen int64
	// AverageFen is the total divided by the number of distinct dates
	// with at least one record; days without expenses are excluded
	// from the denominator.
	AverageFen int64
	MaxFen     int64
	// MostUsedMethod is the payment method with the largest summed
	// amount (not the largest count). Ties break in favor of the
	// method encountered first.
	MostUsedMethod string
}

// Summarize computes aggregate statistics over chart rows.
// An empty input yields the zero Summary.
func Summarize(rows []ChartRow) Summary {
	if len(rows) == 0 {
		return Summary{}
	}

	var s Summary
	dates := make(map[string]struct{})
	methodSums := make(map[string]int64)
	var methodOrder []string

	for _, r := range rows {
		s.TotalFen += r.AmountFen
		if r.AmountFen > s.MaxFen {
			s.MaxFen = r.AmountFen
		}
		dates[r.Date] = struct{}{}
		if _, seen := methodSums[r.PaymentMethod]; !seen {
			methodOrder = append(methodOrder, r.PaymentMethod)
		}
		methodSums[r.PaymentMethod] += r.AmountFen
	}

	s.AverageFen = s.TotalFen / int64(len(dates))

	var best int64 = -1
	for _, m := range methodOrder {
		if methodSums[m] > best {
			best = methodSums[m]
			s.MostUsedMethod = m
		}
	}
	return s
}

// DateBucket is a per-date amount sum used by the line and bar charts.
type DateBucket struct {
	Date      string
	AmountFen int64
}

// MethodBucket is a per-payment-method amount sum used by the pie chart.
type MethodBucket struct {
	Method    string
	AmountFen int64
}

// BucketByDate sums amounts per distinct date, ascending. Dates arrive
// in ISO form so lexical order is chronological order.
func BucketByDate(rows []ChartRow) []DateBucket {
	sums := make(map[string]int64)
	var order []string
	for _, r := range rows {
		if _, seen := sums[r.Date]; !seen {
			order = append(order, r.Date)
		}
		sums[r.Date] += r.AmountFen
	}
	sort.Strings(order)
	buckets := make([]DateBucket, 0, len(order))
	for _, d := range order {
		buckets = append(buckets, DateBucket{Date: d, AmountFen: sums[d]})
	}
	return buckets
}

// BucketByMethod sums amounts per payment method in first-encountered order.
func BucketByMethod(rows []ChartRow) []MethodBucket {
	sums := make(map[string]int64)
	var order []string
	for _, r := range rows {
		if _, seen := sums[r.PaymentMethod]; !seen {
			order = append(order, r.PaymentMethod)
		}
		sums[r.PaymentMethod] += r.AmountFen
	}
	buckets := make([]MethodBucket, 0, len(order))
	for _, m := range order {
		buckets = append(buckets, MethodBucket{Method: m, AmountFen: sums[m]})
	}
	return buckets
}
