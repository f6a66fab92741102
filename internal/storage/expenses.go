package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"expense-tracker/internal/models"
)

const expenseColumns = "id, user_id, title, amount, category, note, date"

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	var e models.Expense
	var date string
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Amount, &e.Category, &e.Note, &date); err != nil {
		return nil, notFound(err)
	}
	t, err := parseTime(date)
	if err != nil {
		return nil, err
	}
	e.Date = t
	return &e, nil
}

func scanExpenses(rows *sql.Rows) ([]models.Expense, error) {
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// CreateExpense inserts e and sets its ID. A zero date is replaced by the current time.
func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	e.Date = e.Date.UTC().Truncate(time.Second)

	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO expenses (user_id, title, amount, category, note, date) VALUES (?, ?, ?, ?, ?, ?)",
		e.UserID, e.Title, e.Amount, e.Category, e.Note, formatTime(e.Date),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// GetExpense retrieves a single expense by ID.
func (db *DB) GetExpense(ctx context.Context, id int64) (*models.Expense, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	return scanExpense(row)
}

// UpdateExpense updates an existing expense in the database.
func (db *DB) UpdateExpense(ctx context.Context, e *models.Expense) error {
	result, err := db.conn.ExecContext(ctx,
		"UPDATE expenses SET title = ?, amount = ?, category = ?, note = ?, date = ? WHERE id = ?",
		e.Title, e.Amount, e.Category, e.Note, formatTime(e.Date), e.ID,
	)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// DeleteExpense removes a single expense.
func (db *DB) DeleteExpense(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// ListExpenses retrieves all expenses of a user, newest first.
func (db *DB) ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? ORDER BY date DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

// SearchExpenses returns the user's expenses whose title, category or note
// contains query, ignoring case. Matching runs in Go since SQLite's lower()
// and LIKE only fold ASCII.
func (db *DB) SearchExpenses(ctx context.Context, userID int64, query string) ([]models.Expense, error) {
	all, err := db.ListExpenses(ctx, userID)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var matched []models.Expense
	for _, e := range all {
		if containsFold(e.Title, needle) || containsFold(e.Category, needle) || containsFold(e.Note, needle) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

func containsFold(field, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(field), lowerNeedle)
}

// DeleteExpensesInRange removes the user's expenses dated in [from, through]
// and returns how many were removed.
func (db *DB) DeleteExpensesInRange(ctx context.Context, userID int64, from, through time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		"DELETE FROM expenses WHERE user_id = ? AND date >= ? AND date <= ?",
		userID, formatTime(from), formatTime(through),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountExpenses returns the number of expenses owned by a user.
func (db *DB) CountExpenses(ctx context.Context, userID int64) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses WHERE user_id = ?", userID).Scan(&count)
	return count, err
}
