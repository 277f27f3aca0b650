package http

import (
	"html/template"
	"log/slog"
	"net/http"

	"jizhang/internal/charts"
	"jizhang/internal/core"
)

type statsView struct {
	Email  string
	Period core.Period
}

type recordRow struct {
	Date       string
	TimePeriod string
	ItemName   string
	Amount     string
	Method     string
}

type statsPartialView struct {
	Period  core.Period
	Periods []core.Period

	HasData        bool
	Total          string
	Average        string
	Max            string
	MostUsedMethod string

	LineJSON template.JS
	PieJSON  template.JS
	BarJSON  template.JS

	Records    []recordRow
	Pagination pagination
}

// statsPeriods lists the selectable reporting periods in display order.
var statsPeriods = []core.Period{core.PeriodDay, core.PeriodWeek, core.PeriodMonth, core.PeriodYear}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	s.render(w, r, "stats.html", statsView{
		Email:  user.Email,
		Period: core.ParsePeriod(r.URL.Query().Get("period")),
	})
}

// handleStatsPartial renders the statistics body: aggregate cards, the
// three charts, and one page of records. Switching period resets the
// page; an out-of-range page clamps to the last one.
func (s *Server) handleStatsPartial(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	period := core.ParsePeriod(r.URL.Query().Get("period"))
	window := period.Resolve(today())

	rows, err := s.repo.ListChartRows(r.Context(), user.ID, window)
	if err != nil {
		slog.ErrorContext(r.Context(), "Stats query error", "error", err, "user_id", user.ID, "period", period)
		http.Error(w, "加载失败", http.StatusInternalServerError)
		return
	}

	view := statsPartialView{
		Period:  period,
		Periods: statsPeriods,
		HasData: len(rows) > 0,
	}

	if view.HasData {
		summary := core.Summarize(rows)
		view.Total = core.FormatYuan(summary.TotalFen)
		view.Average = core.FormatYuan(summary.AverageFen)
		view.Max = core.FormatYuan(summary.MaxFen)
		view.MostUsedMethod = summary.MostUsedMethod

		set := charts.Build(rows, period)
		if view.LineJSON, err = optionJS(set.Line); err == nil {
			if view.PieJSON, err = optionJS(set.Pie); err == nil {
				view.BarJSON, err = optionJS(set.Bar)
			}
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "Chart option encode error", "error", err)
			http.Error(w, "加载失败", http.StatusInternalServerError)
			return
		}
	}

	count, err := s.repo.CountExpenses(r.Context(), user.ID, window)
	if err != nil {
		slog.ErrorContext(r.Context(), "Stats count error", "error", err, "user_id", user.ID)
		http.Error(w, "加载失败", http.StatusInternalServerError)
		return
	}

	total := totalPages(count)
	page := clampPage(parsePage(r.URL.Query().Get("page")), total)
	view.Pagination = buildPagination(page, total)

	expenses, err := s.repo.ListExpensesPage(r.Context(), user.ID, window, pageSize, (page-1)*pageSize)
	if err != nil {
		slog.ErrorContext(r.Context(), "Stats page query error", "error", err, "user_id", user.ID, "page", page)
		http.Error(w, "加载失败", http.StatusInternalServerError)
		return
	}
	for _, e := range expenses {
		view.Records = append(view.Records, recordRow{
			Date:       e.Date.ISO(),
			TimePeriod: string(e.TimePeriod),
			ItemName:   e.ItemName,
			Amount:     core.FormatYuan(e.Amount.Fen),
			Method:     e.PaymentMethod,
		})
	}

	s.render(w, r, "stats_body.html", view)
}

func optionJS(o charts.Option) (template.JS, error) {
	j, err := o.JSON()
	if err != nil {
		return "", err
	}
	return template.JS(j), nil
}
