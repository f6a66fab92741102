package handlers

import (
	"net/http"
	"strconv"
)

// StatsCategoryItem represents a category with its spending statistics.
type StatsCategoryItem struct {
	Category      string
	Total         float64
	Count         int
	Percentage    float64
	CategoryStyle CategoryStyle
}

// StatsViewModel is the data passed to the summary view template.
type StatsViewModel struct {
	PageData
	Total       float64
	Count       int
	TopCategory string
	Categories  []StatsCategoryItem
}

// Summary renders the totals per category.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	sum, err := h.expenses.Summary(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, r, "Summary error", err)
		return
	}

	categoryItems := make([]StatsCategoryItem, 0, len(sum.Categories))
	for _, ct := range sum.Categories {
		categoryItems = append(categoryItems, StatsCategoryItem{
			Category:      ct.Category,
			Total:         ct.Total,
			Count:         ct.Count,
			Percentage:    ct.Percentage,
			CategoryStyle: getCategoryStyle(ct.Category),
		})
	}

	h.render(w, r, "summary.html", &StatsViewModel{
		PageData:    PageData{Title: "Summary"},
		Total:       sum.Total,
		Count:       sum.Count,
		TopCategory: sum.TopCategory,
		Categories:  categoryItems,
	})
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}
