package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jizhang/internal/auth"
	"jizhang/internal/core"
	"jizhang/internal/events"
	"jizhang/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Repository) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	srv := NewServer(":0", repo, events.NewHub(), Options{})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	require.NotNil(t, srv.templates, "templates must parse")
	return srv, repo
}

func createTestUser(t *testing.T, repo *storage.Repository) (core.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	user, err := repo.CreateUser(context.Background(), "test@example.com", hash)
	require.NoError(t, err)

	token, err := auth.GenerateSessionToken()
	require.NoError(t, err)
	err = repo.CreateSession(context.Background(), token, user.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return user, token
}

func authedGet(t *testing.T, srv *Server, token, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func authedPostForm(t *testing.T, srv *Server, token, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func expenseForm(date, item, amount string) url.Values {
	return url.Values{
		"date":           {date},
		"time_period":    {"中午"},
		"item_name":      {item},
		"amount":         {amount},
		"payment_method": {core.PaymentMethods[0]},
	}
}

func TestIndexRequiresLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestIndexRendersForm(t *testing.T) {
	srv, repo := newTestServer(t)
	_, token := createTestUser(t, repo)

	rec := authedGet(t, srv, token, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "test@example.com")
	assert.Contains(t, body, "上午")
	assert.Contains(t, body, "花呗")
}

func TestSignupCreatesUserAndSession(t *testing.T) {
	srv, repo := newTestServer(t)

	form := url.Values{
		"email":            {"new@example.com"},
		"password":         {"secret123"},
		"confirm_password": {"secret123"},
	}
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	user, err := repo.GetUserByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, user.PasswordHash)

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "signup must set a session cookie")
	_, err = repo.ValidateSession(context.Background(), sessionCookie.Value)
	assert.NoError(t, err)
}

func TestSignupRejectsMismatchedPasswords(t *testing.T) {
	srv, repo := newTestServer(t)

	form := url.Values{
		"email":            {"new@example.com"},
		"password":         {"secret123"},
		"confirm_password": {"different"},
	}
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "两次输入的密码不一致")

	_, err := repo.GetUserByEmail(context.Background(), "new@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignupRejectsShortPassword(t *testing.T) {
	srv, _ := newTestServer(t)

	form := url.Values{
		"email":            {"new@example.com"},
		"password":         {"abc"},
		"confirm_password": {"abc"},
	}
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "密码至少需要6个字符")
}

func TestLoginWrongPassword(t *testing.T) {
	srv, repo := newTestServer(t)
	createTestUser(t, repo)

	form := url.Values{"email": {"test@example.com"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "邮箱或密码错误")
}

func TestCreateExpense(t *testing.T) {
	srv, repo := newTestServer(t)
	user, token := createTestUser(t, repo)

	rec := authedPostForm(t, srv, token, "/expenses", expenseForm("2026-08-29", "午饭", "12.50"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "expense:created", rec.Header().Get("HX-Trigger"))
	assert.Contains(t, rec.Body.String(), "午饭")
	assert.Contains(t, rec.Body.String(), "¥12.50")

	day := core.NewDate(2026, 8, 29)
	amounts, err := repo.ListAmounts(context.Background(), user.ID, core.DateRange{Start: day, End: day})
	require.NoError(t, err)
	require.Len(t, amounts, 1)
	assert.Equal(t, int64(1250), amounts[0])
}

func TestCreateExpenseRejectsBadInput(t *testing.T) {
	srv, repo := newTestServer(t)
	_, token := createTestUser(t, repo)

	tests := []struct {
		name string
		form url.Values
	}{
		{"bad amount", expenseForm("2026-08-29", "午饭", "abc")},
		{"zero amount", expenseForm("2026-08-29", "午饭", "0")},
		{"bad date", expenseForm("29/08/2026", "午饭", "10")},
		{"empty item", expenseForm("2026-08-29", "   ", "10")},
		{"unknown method", func() url.Values {
			f := expenseForm("2026-08-29", "午饭", "10")
			f.Set("payment_method", "现金")
			return f
		}()},
		{"unknown period", func() url.Values {
			f := expenseForm("2026-08-29", "午饭", "10")
			f.Set("time_period", "深夜")
			return f
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := authedPostForm(t, srv, token, "/expenses", tt.form)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Empty(t, rec.Header().Get("HX-Trigger"))
		})
	}
}

func TestSummaryTotals(t *testing.T) {
	srv, repo := newTestServer(t)
	user, token := createTestUser(t, repo)

	now := today()
	monthStart := core.NewDate(now.Year(), int(now.Time.Month()), 1)
	todayFen := int64(0)
	monthFen := int64(0)
	for _, e := range []struct {
		date core.Date
		fen  int64
	}{
		{now, 1250},
		{now, 750},
		{monthStart, 500},
	} {
		_, err := repo.CreateExpense(context.Background(), core.Expense{
			UserID:        user.ID,
			Date:          e.date,
			TimePeriod:    core.PeriodEvening,
			ItemName:      "x",
			Amount:        core.Money{Fen: e.fen},
			PaymentMethod: core.PaymentMethods[0],
		})
		require.NoError(t, err)
		monthFen += e.fen
		if e.date.ISO() == now.ISO() {
			todayFen += e.fen
		}
	}

	rec := authedGet(t, srv, token, "/ui/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, core.FormatYuan(todayFen))
	assert.Contains(t, body, core.FormatYuan(monthFen))
}

func TestRecentGroupsAndLabels(t *testing.T) {
	srv, repo := newTestServer(t)
	user, token := createTestUser(t, repo)

	now := today()
	yesterday := core.Date{Time: now.AddDate(0, 0, -1)}
	old := core.Date{Time: now.AddDate(0, 0, -5)}
	for _, d := range []core.Date{now, yesterday, old} {
		_, err := repo.CreateExpense(context.Background(), core.Expense{
			UserID:        user.ID,
			Date:          d,
			TimePeriod:    core.PeriodMorning,
			ItemName:      "早饭" + d.ISO(),
			Amount:        core.Money{Fen: 800},
			PaymentMethod: core.PaymentMethods[1],
		})
		require.NoError(t, err)
	}

	rec := authedGet(t, srv, token, "/ui/recent")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "今天")
	assert.Contains(t, body, "昨天")
	assert.NotContains(t, body, old.ISO(), "records outside the 3-day window are excluded")
}

func TestStatsPartialDayPeriod(t *testing.T) {
	srv, repo := newTestServer(t)
	user, token := createTestUser(t, repo)

	now := today()
	for i, fen := range []int64{1000, 2000, 3000} {
		_, err := repo.CreateExpense(context.Background(), core.Expense{
			UserID:        user.ID,
			Date:          now,
			TimePeriod:    core.PeriodMidday,
			ItemName:      fmt.Sprintf("item-%d", i),
			Amount:        core.Money{Fen: fen},
			PaymentMethod: core.PaymentMethods[0],
		})
		require.NoError(t, err)
	}

	rec := authedGet(t, srv, token, "/ui/stats?period=day")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "¥60.00", "total")
	assert.Contains(t, body, "¥30.00", "max")
	assert.Contains(t, body, "消费趋势")
	assert.Contains(t, body, "item-2")
}

func TestStatsPartialEmptyPeriod(t *testing.T) {
	srv, repo := newTestServer(t)
	_, token := createTestUser(t, repo)

	rec := authedGet(t, srv, token, "/ui/stats?period=week")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "该时间段内没有记录")
}

func TestStatsPagination(t *testing.T) {
	srv, repo := newTestServer(t)
	user, token := createTestUser(t, repo)

	now := today()
	for i := 0; i < 25; i++ {
		_, err := repo.CreateExpense(context.Background(), core.Expense{
			UserID:        user.ID,
			Date:          now,
			TimePeriod:    core.PeriodAfternoon,
			ItemName:      fmt.Sprintf("record-%02d", i),
			Amount:        core.Money{Fen: 100},
			PaymentMethod: core.PaymentMethods[0],
		})
		require.NoError(t, err)
	}

	// Page 3 holds the 5 oldest records and has no next page
	rec := authedGet(t, srv, token, "/ui/stats?period=day&page=3")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "record-00")
	assert.NotContains(t, body, "record-24")
	assert.Contains(t, body, "disabled>下一页")

	// Page 1 has a next page but no previous one
	rec = authedGet(t, srv, token, "/ui/stats?period=day&page=1")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.NotContains(t, body, "disabled>下一页")
	assert.Contains(t, body, "disabled>上一页")

	// Out-of-range pages clamp to the last page instead of going empty
	rec = authedGet(t, srv, token, "/ui/stats?period=day&page=99")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "record-00")
}

func TestStatsRefreshKeepsSelection(t *testing.T) {
	srv, repo := newTestServer(t)
	user, token := createTestUser(t, repo)

	for i := 0; i < 15; i++ {
		_, err := repo.CreateExpense(context.Background(), core.Expense{
			UserID:        user.ID,
			Date:          today(),
			TimePeriod:    core.PeriodMorning,
			ItemName:      fmt.Sprintf("item-%02d", i),
			Amount:        core.Money{Fen: 100},
			PaymentMethod: core.PaymentMethods[0],
		})
		require.NoError(t, err)
	}

	// A change event re-fetches the partial with the period and page the
	// user is looking at, not the ones the page loaded with
	rec := authedGet(t, srv, token, "/ui/stats?period=week&page=2")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `hx-trigger="expense-changed from:body"`)
	assert.Contains(t, body, `hx-get="/ui/stats?period=week&page=2"`)

	// The page container itself only loads once
	rec = authedGet(t, srv, token, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hx-trigger="load"`)
}

func TestAppScriptResetsFormOnCreate(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/static/app.js", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The saved-expense event clears the entry form; failures leave it
	// populated because only successes raise the event
	script := rec.Body.String()
	assert.Contains(t, script, `"expense:created"`)
	assert.Contains(t, script, "form.reset()")
}

func TestStatsScopedToOwner(t *testing.T) {
	srv, repo := newTestServer(t)
	_, token := createTestUser(t, repo)

	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	other, err := repo.CreateUser(context.Background(), "other@example.com", hash)
	require.NoError(t, err)
	_, err = repo.CreateExpense(context.Background(), core.Expense{
		UserID:        other.ID,
		Date:          today(),
		TimePeriod:    core.PeriodMorning,
		ItemName:      "别人的记录",
		Amount:        core.Money{Fen: 999},
		PaymentMethod: core.PaymentMethods[0],
	})
	require.NoError(t, err)

	rec := authedGet(t, srv, token, "/ui/stats?period=day")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "别人的记录")
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestExpiredSessionRedirects(t *testing.T) {
	srv, repo := newTestServer(t)
	user, _ := createTestUser(t, repo)

	token, err := auth.GenerateSessionToken()
	require.NoError(t, err)
	err = repo.CreateSession(context.Background(), token, user.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	rec := authedGet(t, srv, token, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRollingSessionRenewal(t *testing.T) {
	srv, repo := newTestServer(t)
	user, _ := createTestUser(t, repo)

	// Session in the second half of its lifetime gets extended
	token, err := auth.GenerateSessionToken()
	require.NoError(t, err)
	err = repo.CreateSession(context.Background(), token, user.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	rec := authedGet(t, srv, token, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	info, err := repo.ValidateSession(context.Background(), token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(srv.sessionDuration), info.ExpiresAt, time.Minute)
}
