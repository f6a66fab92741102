package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"expense-tracker/internal/events"
	"expense-tracker/internal/models"
	"expense-tracker/internal/service"
	"expense-tracker/internal/storage"
	"expense-tracker/web"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testPassword = "hunter22"

// HandlersTestSuite drives the router over HTTP with a cookie-carrying client.
type HandlersTestSuite struct {
	suite.Suite
	db       *storage.DB
	server   *httptest.Server
	expenses *service.ExpenseService
	recorder *events.Recorder
}

func (suite *HandlersTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err)
	suite.db = db
	suite.recorder = &events.Recorder{}

	authSvc := service.NewAuthService(db, db, suite.recorder, nil, time.Hour)
	suite.expenses = service.NewExpenseService(db, db, suite.recorder, nil)
	h := NewHandlers(authSvc, suite.expenses, web.Templates(), false, nil)

	mux := http.NewServeMux()
	h.Routes(mux)
	suite.server = httptest.NewServer(SecurityHeaders(mux))
}

func (suite *HandlersTestSuite) TearDownTest() {
	suite.server.Close()
	suite.db.Close()
}

// client returns a client that keeps cookies and does not follow redirects.
func (suite *HandlersTestSuite) client() *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(suite.T(), err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (suite *HandlersTestSuite) get(c *http.Client, path string) (*http.Response, string) {
	resp, err := c.Get(suite.server.URL + path)
	require.NoError(suite.T(), err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	return resp, string(body)
}

func (suite *HandlersTestSuite) post(c *http.Client, path string, form url.Values) (*http.Response, string) {
	resp, err := c.PostForm(suite.server.URL+path, form)
	require.NoError(suite.T(), err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	return resp, string(body)
}

// login registers a user and returns a client holding its session.
func (suite *HandlersTestSuite) login(name, email string) (*http.Client, *models.User) {
	c := suite.client()
	resp, _ := suite.post(c, "/register", url.Values{
		"name": {name}, "email": {email},
		"password": {testPassword}, "confirm_password": {testPassword},
	})
	require.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	require.Equal(suite.T(), "/login", resp.Header.Get("Location"))

	resp, _ = suite.post(c, "/login", url.Values{"email": {email}, "password": {testPassword}})
	require.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	require.Equal(suite.T(), "/dashboard", resp.Header.Get("Location"))

	u, err := suite.db.GetUserByEmail(context.Background(), email)
	require.NoError(suite.T(), err)
	return c, u
}

func (suite *HandlersTestSuite) addExpense(userID int64, title, category, note string, amount float64, date string) *models.Expense {
	d, err := service.ParseDate(date)
	require.NoError(suite.T(), err)
	e, err := suite.expenses.Add(context.Background(), userID, service.ExpenseInput{
		Title: title, Amount: amount, Category: category, Note: note, Date: d,
	})
	require.NoError(suite.T(), err)
	return e
}

func (suite *HandlersTestSuite) TestProtectedRoutesRedirectToLogin() {
	c := suite.client()
	for _, path := range []string{
		"/dashboard", "/profile", "/add_expense", "/view_expenses", "/summary",
		"/delete_data", "/delete_account", "/edit_expense/1", "/delete_expense/1",
	} {
		resp, _ := suite.get(c, path)
		assert.Equal(suite.T(), http.StatusFound, resp.StatusCode, path)
		assert.Equal(suite.T(), "/login", resp.Header.Get("Location"), path)
	}

	_, body := suite.get(c, "/login")
	assert.Contains(suite.T(), body, "Please log in to access this page")

	_, body = suite.get(c, "/login")
	assert.NotContains(suite.T(), body, "Please log in to access this page", "flash is shown once")
}

func (suite *HandlersTestSuite) TestPublicPages() {
	c := suite.client()
	for _, path := range []string{"/", "/register", "/login", "/forgot_password", "/tools"} {
		resp, _ := suite.get(c, path)
		assert.Equal(suite.T(), http.StatusOK, resp.StatusCode, path)
		assert.Equal(suite.T(), "nosniff", resp.Header.Get("X-Content-Type-Options"), path)
	}

	for _, path := range []string{"/download_csv", "/download_pdf", "/pie_chart", "/bar_graph", "/edit_profile"} {
		resp, body := suite.get(c, path)
		assert.Equal(suite.T(), http.StatusOK, resp.StatusCode, path)
		assert.Equal(suite.T(), "Coming Soon", body, path)
	}

	resp, body := suite.get(c, "/healthz")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "ok", body)

	resp, _ = suite.get(c, "/no-such-page")
	assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
}

func (suite *HandlersTestSuite) TestRegisterErrors() {
	suite.login("Alice", "alice@example.com")
	c := suite.client()

	resp, _ := suite.post(c, "/register", url.Values{
		"name": {"Again"}, "email": {"alice@example.com"},
		"password": {"x"}, "confirm_password": {"x"},
	})
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	_, body := suite.get(c, "/login")
	assert.Contains(suite.T(), body, "Email already Registered! Please Log in.")

	resp, body = suite.post(c, "/register", url.Values{
		"name": {"Bob"}, "email": {"bob@example.com"},
		"password": {"one"}, "confirm_password": {"two"},
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(suite.T(), body, "Passwords did not match.")

	count, err := suite.db.UserCount(context.Background())
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *HandlersTestSuite) TestLoginWrongPassword() {
	suite.login("Alice", "alice@example.com")
	c := suite.client()

	resp, body := suite.post(c, "/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong"}})
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(suite.T(), body, "Invalid email or password")

	resp, _ = suite.get(c, "/dashboard")
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode, "session stays unbound")
}

func (suite *HandlersTestSuite) TestDashboardAndLogout() {
	c, _ := suite.login("Alice", "alice@example.com")

	resp, body := suite.get(c, "/dashboard")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), body, "Welcome, Alice")

	resp, _ = suite.get(c, "/login")
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(suite.T(), "/dashboard", resp.Header.Get("Location"))

	resp, _ = suite.get(c, "/logout")
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	resp, _ = suite.get(c, "/dashboard")
	assert.Equal(suite.T(), "/login", resp.Header.Get("Location"))

	resp, _ = suite.get(c, "/logout")
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode, "logout is idempotent")
}

func (suite *HandlersTestSuite) TestAddAndViewExpenses() {
	c, _ := suite.login("Alice", "alice@example.com")

	resp, _ := suite.post(c, "/add_expense", url.Values{
		"title": {"Groceries"}, "amount": {"42.50"}, "category": {"food"},
		"note": {"Weekly market"}, "date": {"2024-03-10"},
	})
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(suite.T(), "/view_expenses", resp.Header.Get("Location"))

	resp, _ = suite.post(c, "/add_expense", url.Values{
		"title": {"Bus"}, "amount": {"2"}, "category": {"transport"}, "date": {"2024-03-11"},
	})
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)

	resp, body := suite.get(c, "/view_expenses")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), body, "Expense added successfully")
	assert.Contains(suite.T(), body, "Groceries")
	assert.Contains(suite.T(), body, "Bus")
	assert.Contains(suite.T(), body, "44.50")

	_, body = suite.get(c, "/view_expenses?query=MARKET")
	assert.Contains(suite.T(), body, "Groceries")
	assert.NotContains(suite.T(), body, "Bus")
}

func (suite *HandlersTestSuite) TestAddExpenseRejectsBadAmount() {
	c, u := suite.login("Alice", "alice@example.com")

	for _, amount := range []string{"ten", "NaN", "Inf"} {
		resp, body := suite.post(c, "/add_expense", url.Values{
			"title": {"Lunch"}, "amount": {amount}, "category": {"food"},
		})
		assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode, "amount %q", amount)
		assert.Contains(suite.T(), body, "Amount must be a number")
		assert.Contains(suite.T(), body, `value="Lunch"`)
	}

	n, err := suite.db.CountExpenses(context.Background(), u.ID)
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), n)
}

func (suite *HandlersTestSuite) TestEditExpense() {
	c, u := suite.login("Alice", "alice@example.com")
	e := suite.addExpense(u.ID, "Lunch", "food", "", 12, "2024-03-01")
	path := "/edit_expense/" + strconv.FormatInt(e.ID, 10)

	resp, body := suite.get(c, path)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), body, `value="Lunch"`)

	resp, _ = suite.post(c, path, url.Values{
		"title": {"Brunch"}, "amount": {"15"}, "category": {"food"}, "note": {"late"},
	})
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)

	got, err := suite.db.GetExpense(context.Background(), e.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Brunch", got.Title)
	assert.Equal(suite.T(), "2024-03-01", got.Date.Format(service.DateLayout))

	resp, body = suite.get(c, "/edit_expense/999")
	assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
	assert.Contains(suite.T(), body, "Expense not found")
}

func (suite *HandlersTestSuite) TestOtherUsersExpenseIsForbidden() {
	_, owner := suite.login("Alice", "alice@example.com")
	intruder, _ := suite.login("Mallory", "mallory@example.com")
	e := suite.addExpense(owner.ID, "Lunch", "food", "", 12, "2024-03-01")
	id := strconv.FormatInt(e.ID, 10)

	resp, body := suite.get(intruder, "/edit_expense/"+id)
	assert.Equal(suite.T(), http.StatusForbidden, resp.StatusCode)
	assert.Contains(suite.T(), body, "unauthorized")

	resp, _ = suite.post(intruder, "/edit_expense/"+id, url.Values{
		"title": {"Hacked"}, "amount": {"1"}, "category": {"x"},
	})
	assert.Equal(suite.T(), http.StatusForbidden, resp.StatusCode)

	resp, _ = suite.post(intruder, "/delete_expense/"+id, nil)
	assert.Equal(suite.T(), http.StatusForbidden, resp.StatusCode)

	got, err := suite.db.GetExpense(context.Background(), e.ID)
	require.NoError(suite.T(), err, "expense must remain")
	assert.Equal(suite.T(), "Lunch", got.Title)
}

func (suite *HandlersTestSuite) TestDeleteExpense() {
	c, u := suite.login("Alice", "alice@example.com")
	e := suite.addExpense(u.ID, "Lunch", "food", "", 12, "2024-03-01")
	path := "/delete_expense/" + strconv.FormatInt(e.ID, 10)

	resp, body := suite.get(c, path)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), body, "Lunch")

	resp, _ = suite.post(c, path, nil)
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(suite.T(), "/view_expenses", resp.Header.Get("Location"))

	resp, _ = suite.post(c, path, nil)
	assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
}

func (suite *HandlersTestSuite) TestDeleteData() {
	c, u := suite.login("Alice", "alice@example.com")
	suite.addExpense(u.ID, "Old", "food", "", 5, "2024-01-05")
	suite.addExpense(u.ID, "New", "food", "", 7, "2024-02-05")

	form := func(start, end, pw, confirm string) url.Values {
		return url.Values{"start_date": {start}, "end_date": {end}, "password": {pw}, "confirm_password": {confirm}}
	}

	resp, body := suite.post(c, "/delete_data", form("2024-01-01", "2024-01-31", "a", "b"))
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(suite.T(), body, "Passwords do not match.")

	_, body = suite.post(c, "/delete_data", form("2024-01-01", "2024-01-31", "nope", "nope"))
	assert.Contains(suite.T(), body, "Incorrect Password")

	_, body = suite.post(c, "/delete_data", form("01/01/2024", "2024-01-31", testPassword, testPassword))
	assert.Contains(suite.T(), body, "Invalid date format")

	resp, _ = suite.post(c, "/delete_data", form("2024-03-01", "2024-01-01", testPassword, testPassword))
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(suite.T(), "/delete_data", resp.Header.Get("Location"))
	_, body = suite.get(c, "/delete_data")
	assert.Contains(suite.T(), body, "No expenses found in the selected date range")

	resp, _ = suite.post(c, "/delete_data", form("2024-01-01", "2024-01-31", testPassword, testPassword))
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(suite.T(), "/dashboard", resp.Header.Get("Location"))

	n, err := suite.db.CountExpenses(context.Background(), u.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, n)
}

func (suite *HandlersTestSuite) TestSummary() {
	c, u := suite.login("Alice", "alice@example.com")
	suite.addExpense(u.ID, "Lunch", "food", "", 10, "2024-01-01")
	suite.addExpense(u.ID, "Dinner", "food", "", 20, "2024-01-02")
	suite.addExpense(u.ID, "Rent", "rent", "", 30, "2024-01-03")

	resp, body := suite.get(c, "/summary")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), body, "60.00")
	assert.Contains(suite.T(), body, "30.00")
	assert.Contains(suite.T(), body, "50.0%")
	assert.Contains(suite.T(), body, "Top category: <strong>food</strong>")
}

func (suite *HandlersTestSuite) TestUpdateProfile() {
	c, u := suite.login("Alice", "alice@example.com")

	resp, body := suite.get(c, "/profile")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), body, `value="alice@example.com"`)

	resp, _ = suite.post(c, "/profile", url.Values{"name": {"Alice B"}, "email": {"alice.b@example.com"}, "new_password": {""}})
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(suite.T(), "/dashboard", resp.Header.Get("Location"))

	got, err := suite.db.GetUserByID(context.Background(), u.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Alice B", got.Name)
	assert.Equal(suite.T(), "alice.b@example.com", got.Email)
}

func (suite *HandlersTestSuite) TestForgotPassword() {
	suite.login("Alice", "alice@example.com")
	c := suite.client()

	resp, body := suite.post(c, "/forgot_password", url.Values{"email": {"nobody@example.com"}, "new_password": {"n"}, "confirm_password": {"n"}})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(suite.T(), body, "No account found with this email.")

	_, body = suite.post(c, "/forgot_password", url.Values{"email": {"alice@example.com"}})
	assert.Contains(suite.T(), body, "All fields are required.")

	resp, _ = suite.post(c, "/forgot_password", url.Values{"email": {"alice@example.com"}, "new_password": {"fresh"}, "confirm_password": {"fresh"}})
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)

	resp, _ = suite.post(c, "/login", url.Values{"email": {"alice@example.com"}, "password": {"fresh"}})
	assert.Equal(suite.T(), "/dashboard", resp.Header.Get("Location"))
}

func (suite *HandlersTestSuite) TestDeleteAccount() {
	c, u := suite.login("Alice", "alice@example.com")
	suite.addExpense(u.ID, "Lunch", "food", "", 10, "2024-01-01")

	resp, body := suite.post(c, "/delete_account", url.Values{"password": {""}, "confirm_password": {""}})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(suite.T(), body, "All Fields are required.")

	_, body = suite.post(c, "/delete_account", url.Values{"password": {"bad"}, "confirm_password": {"bad"}})
	assert.Contains(suite.T(), body, "Incorrect Password.")

	resp, _ = suite.post(c, "/delete_account", url.Values{"password": {testPassword}, "confirm_password": {testPassword}})
	assert.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(suite.T(), "/register", resp.Header.Get("Location"))

	n, err := suite.db.CountExpenses(context.Background(), u.ID)
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), n)

	resp, _ = suite.get(c, "/dashboard")
	assert.Equal(suite.T(), "/login", resp.Header.Get("Location"))
	assert.Contains(suite.T(), suite.recorder.Types(), events.AccountDeleted)
}

func (suite *HandlersTestSuite) TestOverlongPasswordIsAFormError() {
	long := strings.Repeat("p", 80)
	c := suite.client()

	resp, body := suite.post(c, "/register", url.Values{
		"name": {"Bob"}, "email": {"bob@example.com"},
		"password": {long}, "confirm_password": {long},
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(suite.T(), body, "Password must be at most 72 bytes.")

	c, _ = suite.login("Alice", "alice@example.com")
	resp, body = suite.post(c, "/forgot_password", url.Values{
		"email": {"alice@example.com"}, "new_password": {long}, "confirm_password": {long},
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(suite.T(), body, "Password must be at most 72 bytes.")

	resp, body = suite.post(c, "/profile", url.Values{
		"name": {"Alice"}, "email": {"alice@example.com"}, "new_password": {long},
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(suite.T(), body, "Password must be at most 72 bytes.")
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func TestFormatGroupTitle(t *testing.T) {
	now := time.Now().UTC()
	assert.Equal(t, "TODAY", formatGroupTitle(now))
	assert.Equal(t, "YESTERDAY", formatGroupTitle(now.AddDate(0, 0, -1)))
	assert.Equal(t, "FRI, 01 MAR '24", formatGroupTitle(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestGetCategoryStyle(t *testing.T) {
	assert.Equal(t, "#60a5fa", getCategoryStyle(" Food ").Color)
	assert.Equal(t, "#94a3b8", getCategoryStyle("unknown").Color)
}
