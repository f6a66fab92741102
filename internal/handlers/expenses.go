package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"expense-tracker/internal/models"
	"expense-tracker/internal/service"
)

// CategoryDef defines the properties of a suggested category.
type CategoryDef struct {
	ID    string
	Name  string
	Icon  string
	Color string
}

var categories = []CategoryDef{
	{"food", "Food", "🍽️", "#60a5fa"},
	{"transport", "Transport", "🚌", "#a78bfa"},
	{"entertainment", "Entertainment", "🎮", "#f472b6"},
	{"utilities", "Utilities", "💡", "#fbbf24"},
	{"housing", "Housing", "🏠", "#818cf8"},
	{"gifts", "Gifts", "🎁", "#fb7185"},
	{"other", "Other", "📦", "#94a3b8"},
}

// CategoryStyle defines the visual style for a category.
type CategoryStyle struct {
	Icon  string
	Color string
}

func getCategoryStyle(category string) CategoryStyle {
	catLower := strings.ToLower(strings.TrimSpace(category))
	for _, c := range categories {
		if c.ID == catLower {
			return CategoryStyle{Icon: c.Icon, Color: c.Color}
		}
	}
	return CategoryStyle{Icon: "📦", Color: "#94a3b8"}
}

// ExpenseItem represents an expense in the list view.
type ExpenseItem struct {
	models.Expense
	Day           string
	CategoryStyle CategoryStyle
	IsRefund      bool
}

// ExpenseGroup groups expenses by date.
type ExpenseGroup struct {
	Title string
	Date  string
	Total float64
	Items []ExpenseItem
}

// ListViewModel is the data passed to the list view template.
type ListViewModel struct {
	PageData
	Query  string
	Total  float64
	Count  int
	Groups []ExpenseGroup
}

// ExpenseForm holds the raw values of the expense form.
type ExpenseForm struct {
	Title    string
	Amount   string
	Category string
	Note     string
	Date     string
}

// ExpenseFormViewModel is the data passed to the add/edit form templates.
type ExpenseFormViewModel struct {
	PageData
	ID         int64
	Form       ExpenseForm
	IsEdit     bool
	Categories []CategoryDef
}

// ExpenseViewModel shows a single expense.
type ExpenseViewModel struct {
	PageData
	Expense       *models.Expense
	CategoryStyle CategoryStyle
}

// DeleteDataViewModel is the data passed to the date-range deletion form.
type DeleteDataViewModel struct {
	PageData
	StartDate string
	EndDate   string
}

// ViewExpenses renders the list of the user's expenses, optionally filtered by ?query=.
func (h *Handlers) ViewExpenses(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	query := strings.TrimSpace(r.URL.Query().Get("query"))

	expenses, err := h.expenses.List(r.Context(), user.ID, query)
	if err != nil {
		h.serverError(w, r, "ListExpenses error", err)
		return
	}

	groupsMap := make(map[string]*ExpenseGroup)
	var totalSpent float64

	for _, e := range expenses {
		dateStr := e.Date.Format(service.DateLayout)
		if _, ok := groupsMap[dateStr]; !ok {
			groupsMap[dateStr] = &ExpenseGroup{Date: dateStr, Title: formatGroupTitle(e.Date)}
		}
		group := groupsMap[dateStr]
		group.Total += e.Amount
		totalSpent += e.Amount

		group.Items = append(group.Items, ExpenseItem{
			Expense:       e,
			Day:           dateStr,
			CategoryStyle: getCategoryStyle(e.Category),
			IsRefund:      e.Amount < 0,
		})
	}

	groups := make([]ExpenseGroup, 0, len(groupsMap))
	for _, g := range groupsMap {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Date > groups[j].Date })

	h.render(w, r, "view_expenses.html", &ListViewModel{
		PageData: PageData{Title: "Expenses"},
		Query:    query,
		Total:    totalSpent,
		Count:    len(expenses),
		Groups:   groups,
	})
}

// AddExpenseForm renders the form to create a new expense.
func (h *Handlers) AddExpenseForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "add_expense.html", &ExpenseFormViewModel{
		PageData:   PageData{Title: "Add expense"},
		Form:       ExpenseForm{Date: time.Now().UTC().Format(service.DateLayout)},
		Categories: categories,
	})
}

// AddExpense handles the creation of a new expense.
func (h *Handlers) AddExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	vm := &ExpenseFormViewModel{PageData: PageData{Title: "Add expense"}, Categories: categories}

	in, form, problem := parseExpenseForm(r)
	vm.Form = form
	if problem != "" {
		vm.Error = problem
		h.renderStatus(w, r, http.StatusUnprocessableEntity, "add_expense.html", vm)
		return
	}

	if _, err := h.expenses.Add(r.Context(), user.ID, in); err != nil {
		h.serverError(w, r, "CreateExpense error", err)
		return
	}
	h.setFlash(w, FlashSuccess, "Expense added successfully")
	http.Redirect(w, r, "/view_expenses", http.StatusFound)
}

// EditExpenseForm renders the form to edit an existing expense.
func (h *Handlers) EditExpenseForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	expense, ok := h.loadExpense(w, r, user.ID)
	if !ok {
		return
	}
	h.render(w, r, "edit_expense.html", &ExpenseFormViewModel{
		PageData: PageData{Title: "Edit expense"},
		ID:       expense.ID,
		Form: ExpenseForm{
			Title:    expense.Title,
			Amount:   strconv.FormatFloat(expense.Amount, 'f', -1, 64),
			Category: expense.Category,
			Note:     expense.Note,
			Date:     expense.Date.Format(service.DateLayout),
		},
		IsEdit:     true,
		Categories: categories,
	})
}

// EditExpense handles the update of an existing expense.
func (h *Handlers) EditExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Expense not found", http.StatusNotFound)
		return
	}

	in, form, problem := parseExpenseForm(r)
	if problem != "" {
		h.renderStatus(w, r, http.StatusUnprocessableEntity, "edit_expense.html", &ExpenseFormViewModel{
			PageData:   PageData{Title: "Edit expense", Error: problem},
			ID:         id,
			Form:       form,
			IsEdit:     true,
			Categories: categories,
		})
		return
	}

	if _, err := h.expenses.Edit(r.Context(), user.ID, id, in); err != nil {
		h.expenseError(w, r, "UpdateExpense error", err)
		return
	}
	h.setFlash(w, FlashSuccess, "Expenses updated Successfully")
	http.Redirect(w, r, "/view_expenses", http.StatusFound)
}

// DeleteExpenseForm asks for confirmation before deleting an expense.
func (h *Handlers) DeleteExpenseForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	expense, ok := h.loadExpense(w, r, user.ID)
	if !ok {
		return
	}
	h.render(w, r, "delete_expense.html", &ExpenseViewModel{
		PageData:      PageData{Title: "Delete expense"},
		Expense:       expense,
		CategoryStyle: getCategoryStyle(expense.Category),
	})
}

// DeleteExpense removes a single expense.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Expense not found", http.StatusNotFound)
		return
	}
	if err := h.expenses.Delete(r.Context(), user.ID, id); err != nil {
		h.expenseError(w, r, "DeleteExpense error", err)
		return
	}
	h.setFlash(w, FlashSuccess, "Expense deleted")
	http.Redirect(w, r, "/view_expenses", http.StatusFound)
}

// DeleteDataForm renders the date-range deletion form.
func (h *Handlers) DeleteDataForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "delete_data.html", &DeleteDataViewModel{PageData: PageData{Title: "Delete data"}})
}

// DeleteData removes every expense of the user dated within the submitted range.
func (h *Handlers) DeleteData(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	vm := &DeleteDataViewModel{PageData: PageData{Title: "Delete data"}}
	if err := r.ParseForm(); err != nil {
		vm.Error = "Invalid form submission"
		h.renderStatus(w, r, http.StatusBadRequest, "delete_data.html", vm)
		return
	}
	vm.StartDate = r.FormValue("start_date")
	vm.EndDate = r.FormValue("end_date")

	n, err := h.expenses.DeleteRange(r.Context(), user.ID,
		r.FormValue("password"), r.FormValue("confirm_password"), vm.StartDate, vm.EndDate)
	switch {
	case err == nil && n == 0:
		h.setFlash(w, FlashInfo, "No expenses found in the selected date range")
		http.Redirect(w, r, "/delete_data", http.StatusFound)
		return
	case err == nil:
		h.setFlash(w, FlashSuccess, "Deleted "+strconv.FormatInt(n, 10)+" expense(s)")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	case errors.Is(err, service.ErrPasswordMismatch):
		vm.Error = "Passwords do not match."
	case errors.Is(err, service.ErrInvalidCredentials):
		vm.Error = "Incorrect Password"
	case errors.Is(err, service.ErrInvalidDateFormat):
		vm.Error = "Invalid date format"
	default:
		h.serverError(w, r, "DeleteRange error", err)
		return
	}
	h.renderStatus(w, r, http.StatusUnprocessableEntity, "delete_data.html", vm)
}

// loadExpense fetches the expense named by the {id} path value, writing the
// error response itself when it cannot be shown to the user.
func (h *Handlers) loadExpense(w http.ResponseWriter, r *http.Request, userID int64) (*models.Expense, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Expense not found", http.StatusNotFound)
		return nil, false
	}
	expense, err := h.expenses.Get(r.Context(), userID, id)
	if err != nil {
		h.expenseError(w, r, "GetExpense error", err)
		return nil, false
	}
	return expense, true
}

func (h *Handlers) expenseError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, "Expense not found", http.StatusNotFound)
	case errors.Is(err, service.ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusForbidden)
	default:
		h.serverError(w, r, msg, err)
	}
}

// parseExpenseForm reads the expense form. A non-empty problem is shown to the user.
func parseExpenseForm(r *http.Request) (in service.ExpenseInput, form ExpenseForm, problem string) {
	if err := r.ParseForm(); err != nil {
		return in, form, "Invalid form submission"
	}
	form = ExpenseForm{
		Title:    strings.TrimSpace(r.FormValue("title")),
		Amount:   strings.TrimSpace(r.FormValue("amount")),
		Category: strings.TrimSpace(r.FormValue("category")),
		Note:     strings.TrimSpace(r.FormValue("note")),
		Date:     strings.TrimSpace(r.FormValue("date")),
	}
	if form.Title == "" || form.Category == "" || form.Amount == "" {
		return in, form, "Title, amount and category are required"
	}
	amount, err := service.ParseAmount(form.Amount)
	if err != nil {
		return in, form, "Amount must be a number"
	}
	date, err := service.ParseDate(form.Date)
	if err != nil {
		return in, form, "Invalid date format"
	}
	in = service.ExpenseInput{
		Title:    form.Title,
		Amount:   amount,
		Category: form.Category,
		Note:     form.Note,
		Date:     date,
	}
	return in, form, ""
}

func formatGroupTitle(date time.Time) string {
	dateStr := date.Format(service.DateLayout)
	now := time.Now().UTC()

	if dateStr == now.Format(service.DateLayout) {
		return "TODAY"
	}
	if dateStr == now.AddDate(0, 0, -1).Format(service.DateLayout) {
		return "YESTERDAY"
	}
	return strings.ToUpper(date.Format("Mon, 02 Jan '06"))
}
