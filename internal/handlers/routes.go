package handlers

import "net/http"

// Routes registers every page on mux. Protected pages go through RequireSession.
func (h *Handlers) Routes(mux *http.ServeMux) {
	protected := func(fn http.HandlerFunc) http.Handler {
		return h.RequireSession(fn)
	}

	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /register", h.RegisterForm)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /logout", h.Logout)
	mux.HandleFunc("GET /forgot_password", h.ForgotPasswordForm)
	mux.HandleFunc("POST /forgot_password", h.ForgotPassword)

	mux.Handle("GET /dashboard", protected(h.Dashboard))
	mux.Handle("GET /profile", protected(h.ProfileForm))
	mux.Handle("POST /profile", protected(h.UpdateProfile))
	mux.Handle("GET /delete_account", protected(h.DeleteAccountForm))
	mux.Handle("POST /delete_account", protected(h.DeleteAccount))
	mux.Handle("GET /delete_data", protected(h.DeleteDataForm))
	mux.Handle("POST /delete_data", protected(h.DeleteData))
	mux.Handle("GET /add_expense", protected(h.AddExpenseForm))
	mux.Handle("POST /add_expense", protected(h.AddExpense))
	mux.Handle("GET /view_expenses", protected(h.ViewExpenses))
	mux.Handle("GET /edit_expense/{id}", protected(h.EditExpenseForm))
	mux.Handle("POST /edit_expense/{id}", protected(h.EditExpense))
	mux.Handle("GET /delete_expense/{id}", protected(h.DeleteExpenseForm))
	mux.Handle("POST /delete_expense/{id}", protected(h.DeleteExpense))
	mux.Handle("GET /summary", protected(h.Summary))

	mux.HandleFunc("GET /tools", h.Tools)
	for _, path := range []string{"/download_csv", "/download_pdf", "/pie_chart", "/bar_graph", "/edit_profile"} {
		mux.HandleFunc("GET "+path, ComingSoon)
	}
	mux.HandleFunc("GET /healthz", Healthz)
}
