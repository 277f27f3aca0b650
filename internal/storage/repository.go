package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"jizhang/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Repository is the SQLite-backed record store. All expense reads and
// writes are scoped by owner ID.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateExpense inserts one record and returns its assigned ID.
func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (user_id, date, time_period, item_name, amount_fen, payment_method)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Date.ISO(), string(e.TimePeriod), e.ItemName, e.Amount.Fen, e.PaymentMethod,
	)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"user_id", e.UserID,
		"date", e.Date.ISO(),
		"amount_fen", e.Amount.Fen)

	return id, nil
}

// GetExpense retrieves a single record by ID regardless of owner; the
// export worker uses it to resolve change events.
func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, date, time_period, item_name, amount_fen, payment_method, created_at
		FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

// ListAmounts returns the raw amount column for an owner-scoped date
// window. Callers sum client-side; the summary widgets depend on that.
func (r *Repository) ListAmounts(ctx context.Context, userID int64, dr core.DateRange) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT amount_fen FROM expenses
		WHERE user_id = ? AND date >= ? AND date <= ?`,
		userID, dr.Start.ISO(), dr.End.ISO(),
	)
	if err != nil {
		return nil, fmt.Errorf("list amounts: %w", err)
	}
	defer rows.Close()

	var amounts []int64
	for rows.Next() {
		var fen int64
		if err := rows.Scan(&fen); err != nil {
			return nil, fmt.Errorf("scan amount: %w", err)
		}
		amounts = append(amounts, fen)
	}
	return amounts, rows.Err()
}

// ListChartRows returns {date, amount, payment method} for charting,
// ordered by date ascending.
func (r *Repository) ListChartRows(ctx context.Context, userID int64, dr core.DateRange) ([]core.ChartRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, amount_fen, payment_method FROM expenses
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		userID, dr.Start.ISO(), dr.End.ISO(),
	)
	if err != nil {
		return nil, fmt.Errorf("list chart rows: %w", err)
	}
	defer rows.Close()

	var out []core.ChartRow
	for rows.Next() {
		var cr core.ChartRow
		if err := rows.Scan(&cr.Date, &cr.AmountFen, &cr.PaymentMethod); err != nil {
			return nil, fmt.Errorf("scan chart row: %w", err)
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// CountExpenses counts the owner's records inside the window.
func (r *Repository) CountExpenses(ctx context.Context, userID int64, dr core.DateRange) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM expenses
		WHERE user_id = ? AND date >= ? AND date <= ?`,
		userID, dr.Start.ISO(), dr.End.ISO(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// ListExpensesPage returns one page of the fuller record shape, ordered
// by date descending then creation time descending.
func (r *Repository) ListExpensesPage(ctx context.Context, userID int64, dr core.DateRange, limit, offset int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, date, time_period, item_name, amount_fen, payment_method, created_at
		FROM expenses
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date DESC, created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		userID, dr.Start.ISO(), dr.End.ISO(), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses page: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

// ListExpensesRange returns every record in the window, ordered by date
// descending then creation time descending. The recent-expenses list
// uses this with a 3-day trailing window.
func (r *Repository) ListExpensesRange(ctx context.Context, userID int64, dr core.DateRange) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, date, time_period, item_name, amount_fen, payment_method, created_at
		FROM expenses
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date DESC, created_at DESC, id DESC`,
		userID, dr.Start.ISO(), dr.End.ISO(),
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses range: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

// DeleteExpense removes one record, owner-scoped. There is no UI for
// deletion; this exists for operator tooling and tests.
func (r *Repository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e       core.Expense
		dateStr string
		period  string
	)
	if err := row.Scan(&e.ID, &e.UserID, &dateStr, &period, &e.ItemName, &e.Amount.Fen, &e.PaymentMethod, &e.CreatedAt); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("stored date %q: %w", dateStr, err)
	}
	e.Date = d
	e.TimePeriod = core.TimePeriod(period)
	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateUser inserts an account with a pre-hashed password.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES (?, ?)`,
		email, passwordHash,
	)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("last insert id: %w", err)
	}
	return r.GetUserByID(ctx, id)
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	return r.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email)
}

func (r *Repository) getUser(ctx context.Context, query string, arg any) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, ErrNotFound
		}
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// CreateSession stores a login session keyed by token.
func (r *Repository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)`,
		token, userID, expiresAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// SessionInfo pairs a validated session with its owning user.
type SessionInfo struct {
	User      core.User
	ExpiresAt time.Time
}

// ValidateSession resolves a non-expired session token to its user.
// An unknown or expired token yields ErrNotFound; that is the normal
// unauthenticated state, not a failure.
func (r *Repository) ValidateSession(ctx context.Context, token string) (SessionInfo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.password_hash, u.created_at, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?`,
		token, time.Now().UTC(),
	)
	var info SessionInfo
	err := row.Scan(&info.User.ID, &info.User.Email, &info.User.PasswordHash, &info.User.CreatedAt, &info.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SessionInfo{}, ErrNotFound
		}
		return SessionInfo{}, fmt.Errorf("validate session: %w", err)
	}
	return info, nil
}

// RenewSession extends a rolling session.
func (r *Repository) RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?`,
		time.Now().UTC(), newExpiresAt.UTC(), token,
	)
	if err != nil {
		return fmt.Errorf("renew session: %w", err)
	}
	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanExpiredSessions removes expired sessions and reports how many.
func (r *Repository) CleanExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("clean expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
