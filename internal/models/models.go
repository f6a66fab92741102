package models

import "time"

// Expense represents a financial expense record owned by a single user.
type Expense struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	Title    string    `json:"title"`
	Amount   float64   `json:"amount"`
	Category string    `json:"category"`
	Note     string    `json:"note,omitempty"`
	Date     time.Time `json:"date"`
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session represents a user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CategoryTotal is the summed amount spent in one category.
type CategoryTotal struct {
	Category   string  `json:"category"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Summary aggregates a user's expenses by category.
// Categories keeps the order in which each category was first seen.
type Summary struct {
	Total       float64         `json:"total"`
	Count       int             `json:"count"`
	Categories  []CategoryTotal `json:"categories"`
	TopCategory string          `json:"top_category"`
}

// CategoryTotals returns the per-category totals keyed by category name.
func (s Summary) CategoryTotals() map[string]float64 {
	m := make(map[string]float64, len(s.Categories))
	for _, c := range s.Categories {
		m[c.Category] = c.Total
	}
	return m
}
