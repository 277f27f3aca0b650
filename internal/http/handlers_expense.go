package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"jizhang/internal/core"
)

type indexView struct {
	Email          string
	Today          string
	TimePeriods    []core.TimePeriod
	PaymentMethods []string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	s.render(w, r, "index.html", indexView{
		Email:          user.Email,
		Today:          today().ISO(),
		TimePeriods:    core.TimePeriods,
		PaymentMethods: core.PaymentMethods,
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="message error">请求格式不正确</div>`))
		return
	}

	user := userFromContext(r)

	date, err := core.ParseDate(r.Form.Get("date"))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="message error">日期格式不正确</div>`))
		return
	}

	fen, err := core.ParseDecimalToFen(r.Form.Get("amount"))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="message error">金额必须是大于零的数字</div>`))
		return
	}

	exp := core.Expense{
		UserID:        user.ID,
		Date:          date,
		TimePeriod:    core.TimePeriod(sanitizeInput(r.Form.Get("time_period"))),
		ItemName:      sanitizeInput(r.Form.Get("item_name")),
		Amount:        core.Money{Fen: fen},
		PaymentMethod: sanitizeInput(r.Form.Get("payment_method")),
	}
	if err := exp.Validate(); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="message error">记录无效: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	}

	id, err := s.repo.CreateExpense(r.Context(), exp)
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense insert error", "error", err, "user_id", user.ID)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="message error">保存失败，请稍后再试</div>`))
		return
	}

	// Cross-process notification is best-effort; local views refresh
	// through the hub and the HX-Trigger header regardless.
	if s.publisher != nil {
		if err := s.publisher.PublishExpenseChanged(r.Context(), id, user.ID); err != nil {
			slog.ErrorContext(r.Context(), "Failed to publish change event", "error", err, "id", id)
		}
	}
	s.hub.Broadcast()

	w.Header().Set("HX-Trigger", "expense:created")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="message success">已记一笔: ` +
		template.HTMLEscapeString(exp.ItemName) + ` ` +
		template.HTMLEscapeString(core.FormatYuan(exp.Amount.Fen)) + `</div>`))
}

type summaryView struct {
	TodayTotal string
	MonthTotal string
}

// handleSummary renders the today and current-month totals. Sums are
// computed in code from the raw amount column.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	now := today()

	todayAmounts, err := s.repo.ListAmounts(r.Context(), user.ID, core.DateRange{Start: now, End: now})
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary query error", "error", err, "user_id", user.ID)
		http.Error(w, "加载失败", http.StatusInternalServerError)
		return
	}

	monthStart := core.NewDate(now.Year(), int(now.Time.Month()), 1)
	monthAmounts, err := s.repo.ListAmounts(r.Context(), user.ID, core.DateRange{Start: monthStart, End: now})
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary query error", "error", err, "user_id", user.ID)
		http.Error(w, "加载失败", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "summary.html", summaryView{
		TodayTotal: core.FormatYuan(sum(todayAmounts)),
		MonthTotal: core.FormatYuan(sum(monthAmounts)),
	})
}

func sum(amounts []int64) int64 {
	var total int64
	for _, a := range amounts {
		total += a
	}
	return total
}

type recentItem struct {
	TimePeriod string
	ItemName   string
	Amount     string
	Method     string
}

type recentGroup struct {
	Label string
	Date  string
	Total string
	Items []recentItem
}

type recentView struct {
	Groups []recentGroup
}

// handleRecent renders the trailing 3-day record list, newest first.
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	now := today()
	window := core.DateRange{Start: core.Date{Time: now.AddDate(0, 0, -2)}, End: now}

	expenses, err := s.repo.ListExpensesRange(r.Context(), user.ID, window)
	if err != nil {
		slog.ErrorContext(r.Context(), "Recent query error", "error", err, "user_id", user.ID)
		http.Error(w, "加载失败", http.StatusInternalServerError)
		return
	}

	var view recentView
	groupIdx := make(map[string]int)
	totals := make(map[string]int64)
	for _, e := range expenses {
		key := e.Date.ISO()
		idx, ok := groupIdx[key]
		if !ok {
			idx = len(view.Groups)
			groupIdx[key] = idx
			view.Groups = append(view.Groups, recentGroup{
				Label: relativeDayLabel(now, e.Date),
				Date:  key,
			})
		}
		totals[key] += e.Amount.Fen
		view.Groups[idx].Items = append(view.Groups[idx].Items, recentItem{
			TimePeriod: string(e.TimePeriod),
			ItemName:   e.ItemName,
			Amount:     core.FormatYuan(e.Amount.Fen),
			Method:     e.PaymentMethod,
		})
	}
	for i := range view.Groups {
		view.Groups[i].Total = core.FormatYuan(totals[view.Groups[i].Date])
	}

	s.render(w, r, "recent.html", view)
}

func relativeDayLabel(now, d core.Date) string {
	switch int(now.Sub(d.Time) / (24 * time.Hour)) {
	case 0:
		return "今天"
	case 1:
		return "昨天"
	case 2:
		return "前天"
	default:
		return d.ISO()
	}
}
