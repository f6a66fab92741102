package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"expense-tracker/internal/auth"
	"expense-tracker/internal/events"
	applog "expense-tracker/internal/log"
	"expense-tracker/internal/models"
	"expense-tracker/internal/storage"
)

// DateLayout is the accepted format of date inputs.
const DateLayout = "2006-01-02"

// ExpenseStore provides expense persistence.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e *models.Expense) error
	GetExpense(ctx context.Context, id int64) (*models.Expense, error)
	UpdateExpense(ctx context.Context, e *models.Expense) error
	DeleteExpense(ctx context.Context, id int64) error
	ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error)
	SearchExpenses(ctx context.Context, userID int64, query string) ([]models.Expense, error)
	DeleteExpensesInRange(ctx context.Context, userID int64, from, through time.Time) (int64, error)
}

// UserLookup finds users by id.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// ExpenseInput carries the user-editable fields of an expense.
// A zero Date means "now" on Add and "unchanged" on Edit.
type ExpenseInput struct {
	Title    string
	Amount   float64
	Category string
	Note     string
	Date     time.Time
}

// ParseAmount parses amount text from a form.
func ParseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParseDate parses a YYYY-MM-DD date in UTC. Blank input yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return t, nil
}

// ExpenseService manages the expenses of authenticated users.
type ExpenseService struct {
	expenses ExpenseStore
	users    UserLookup
	events   events.Publisher
	logger   *applog.Logger
}

// NewExpenseService returns a new ExpenseService.
func NewExpenseService(expenses ExpenseStore, users UserLookup, publisher events.Publisher, logger *applog.Logger) *ExpenseService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &ExpenseService{
		expenses: expenses,
		users:    users,
		events:   publisher,
		logger:   logger.WithComponent(applog.ComponentExpense),
	}
}

// Add records a new expense owned by userID.
func (s *ExpenseService) Add(ctx context.Context, userID int64, in ExpenseInput) (*models.Expense, error) {
	e := &models.Expense{
		UserID:   userID,
		Title:    strings.TrimSpace(in.Title),
		Amount:   in.Amount,
		Category: strings.TrimSpace(in.Category),
		Note:     strings.TrimSpace(in.Note),
		Date:     in.Date,
	}
	if err := s.expenses.CreateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense added", "user_id", userID, "expense_id", e.ID)
	ev := events.New(events.ExpenseCreated, userID)
	ev.ExpenseID = e.ID
	s.publish(ctx, ev)
	return e, nil
}

// Get returns an expense owned by userID.
func (s *ExpenseService) Get(ctx context.Context, userID, id int64) (*models.Expense, error) {
	e, err := s.expenses.GetExpense(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if e.UserID != userID {
		return nil, ErrUnauthorized
	}
	return e, nil
}

// List returns the expenses of userID, newest first. A non-blank query keeps
// only expenses whose title, category or note contains it, ignoring case.
func (s *ExpenseService) List(ctx context.Context, userID int64, query string) ([]models.Expense, error) {
	query = strings.TrimSpace(query)
	var (
		list []models.Expense
		err  error
	)
	if query == "" {
		list, err = s.expenses.ListExpenses(ctx, userID)
	} else {
		list, err = s.expenses.SearchExpenses(ctx, userID, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return list, nil
}

// Edit overwrites the fields of an expense owned by userID.
func (s *ExpenseService) Edit(ctx context.Context, userID, id int64, in ExpenseInput) (*models.Expense, error) {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	e.Title = strings.TrimSpace(in.Title)
	e.Amount = in.Amount
	e.Category = strings.TrimSpace(in.Category)
	e.Note = strings.TrimSpace(in.Note)
	if !in.Date.IsZero() {
		e.Date = in.Date
	}

	if err := s.expenses.UpdateExpense(ctx, e); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense updated", "user_id", userID, "expense_id", e.ID)
	ev := events.New(events.ExpenseUpdated, userID)
	ev.ExpenseID = e.ID
	s.publish(ctx, ev)
	return e, nil
}

// Delete removes an expense owned by userID.
func (s *ExpenseService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.expenses.DeleteExpense(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense deleted", "user_id", userID, "expense_id", id)
	ev := events.New(events.ExpenseDeleted, userID)
	ev.ExpenseID = id
	s.publish(ctx, ev)
	return nil
}

// DeleteRange removes the expenses of userID dated from start to end,
// both days included, after re-checking the password. It returns how many
// expenses were removed; an empty range is not an error.
func (s *ExpenseService) DeleteRange(ctx context.Context, userID int64, password, confirm, start, end string) (int64, error) {
	if password != confirm {
		return 0, ErrPasswordMismatch
	}
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, fmt.Errorf("lookup user: %w", err)
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return 0, ErrInvalidCredentials
	}

	from, err := time.ParseInLocation(DateLayout, strings.TrimSpace(start), time.UTC)
	if err != nil {
		return 0, ErrInvalidDateFormat
	}
	to, err := time.ParseInLocation(DateLayout, strings.TrimSpace(end), time.UTC)
	if err != nil {
		return 0, ErrInvalidDateFormat
	}

	// The end day is inclusive up to its last second.
	through := to.Add(24*time.Hour - time.Second)
	n, err := s.expenses.DeleteExpensesInRange(ctx, userID, from, through)
	if err != nil {
		return 0, fmt.Errorf("delete expenses in range: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	s.logger.InfoContext(ctx, "Expenses deleted in range", "user_id", userID, "count", n, "from", start, "to", end)
	ev := events.New(events.ExpensesRangeDeleted, userID)
	ev.Count = n
	s.publish(ctx, ev)
	return n, nil
}

// Summary totals the expenses of userID per category.
func (s *ExpenseService) Summary(ctx context.Context, userID int64) (*models.Summary, error) {
	list, err := s.expenses.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return Summarize(list), nil
}

// Summarize aggregates expenses given newest first, as ListExpenses returns them.
// Categories are ordered by first appearance walking from the oldest expense,
// and the top category is the first to reach the highest total.
func Summarize(newestFirst []models.Expense) *models.Summary {
	sum := &models.Summary{Categories: []models.CategoryTotal{}}
	index := make(map[string]int)

	for i := len(newestFirst) - 1; i >= 0; i-- {
		e := newestFirst[i]
		sum.Total += e.Amount
		sum.Count++
		j, ok := index[e.Category]
		if !ok {
			j = len(sum.Categories)
			index[e.Category] = j
			sum.Categories = append(sum.Categories, models.CategoryTotal{Category: e.Category})
		}
		sum.Categories[j].Total += e.Amount
		sum.Categories[j].Count++
	}

	for i := range sum.Categories {
		c := &sum.Categories[i]
		if sum.Total > 0 {
			c.Percentage = c.Total / sum.Total * 100
		}
		if i == 0 || c.Total > sum.Categories[index[sum.TopCategory]].Total {
			sum.TopCategory = c.Category
		}
	}
	return sum
}

func (s *ExpenseService) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "type", e.Type, "error", err)
	}
}
