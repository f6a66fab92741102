package handlers

import (
	"errors"
	"net/http"

	"expense-tracker/internal/service"
)

const passwordTooLongMessage = "Password must be at most 72 bytes."

// FormViewModel is used by the simple account forms.
type FormViewModel struct {
	PageData
	Name  string
	Email string
}

// Index renders the landing page.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "index.html", &FormViewModel{PageData: PageData{Title: "Expense Tracker"}})
}

// RegisterForm renders the registration page.
func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register.html", &FormViewModel{PageData: PageData{Title: "Register"}})
}

// Register handles the registration form submission.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	vm := &FormViewModel{PageData: PageData{Title: "Register"}}
	if err := r.ParseForm(); err != nil {
		vm.Error = "Invalid form submission"
		h.renderStatus(w, r, http.StatusBadRequest, "register.html", vm)
		return
	}
	vm.Name = r.FormValue("name")
	vm.Email = r.FormValue("email")

	_, err := h.auth.Register(r.Context(), vm.Name, vm.Email, r.FormValue("password"), r.FormValue("confirm_password"))
	switch {
	case err == nil:
		h.setFlash(w, FlashSuccess, "Registration successful. Please Log in!")
		http.Redirect(w, r, "/login", http.StatusFound)
	case errors.Is(err, service.ErrDuplicateEmail):
		h.setFlash(w, FlashWarning, "Email already Registered! Please Log in.")
		http.Redirect(w, r, "/login", http.StatusFound)
	case errors.Is(err, service.ErrPasswordMismatch):
		vm.Error = "Passwords did not match."
		h.renderStatus(w, r, http.StatusUnprocessableEntity, "register.html", vm)
	case errors.Is(err, service.ErrFieldsMissing):
		vm.Error = "All fields are required."
		h.renderStatus(w, r, http.StatusUnprocessableEntity, "register.html", vm)
	case errors.Is(err, service.ErrPasswordTooLong):
		vm.Error = passwordTooLongMessage
		h.renderStatus(w, r, http.StatusUnprocessableEntity, "register.html", vm)
	default:
		h.serverError(w, r, "Registration failed", err)
	}
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, redirect to the dashboard
	if h.currentUser(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render(w, r, "login.html", &FormViewModel{PageData: PageData{Title: "Log in"}})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	vm := &FormViewModel{PageData: PageData{Title: "Log in"}}
	if err := r.ParseForm(); err != nil {
		vm.Error = "Invalid form submission"
		h.renderStatus(w, r, http.StatusBadRequest, "login.html", vm)
		return
	}
	vm.Email = r.FormValue("email")

	res, err := h.auth.Login(r.Context(), vm.Email, r.FormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			vm.Error = "Invalid email or password"
			h.renderStatus(w, r, http.StatusUnauthorized, "login.html", vm)
			return
		}
		h.serverError(w, r, "Login failed", err)
		return
	}

	h.setSessionCookie(w, res.Token, res.ExpiresAt)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Logout handles user logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			h.log(r).ErrorContext(r.Context(), "Failed to delete session", "error", err)
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// ForgotPasswordForm renders the password reset page.
func (h *Handlers) ForgotPasswordForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "forgot_password.html", &FormViewModel{PageData: PageData{Title: "Reset password"}})
}

// ForgotPassword handles the password reset form submission.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	vm := &FormViewModel{PageData: PageData{Title: "Reset password"}}
	if err := r.ParseForm(); err != nil {
		vm.Error = "Invalid form submission"
		h.renderStatus(w, r, http.StatusBadRequest, "forgot_password.html", vm)
		return
	}
	vm.Email = r.FormValue("email")

	err := h.auth.ForgotPassword(r.Context(), vm.Email, r.FormValue("new_password"), r.FormValue("confirm_password"))
	switch {
	case err == nil:
		h.setFlash(w, FlashSuccess, "Password Updated Successfully.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	case errors.Is(err, service.ErrFieldsMissing):
		vm.Error = "All fields are required."
	case errors.Is(err, service.ErrPasswordMismatch):
		vm.Error = "Passwords do not match"
	case errors.Is(err, service.ErrPasswordTooLong):
		vm.Error = passwordTooLongMessage
	case errors.Is(err, service.ErrNoSuchAccount):
		vm.Error = "No account found with this email."
	default:
		h.serverError(w, r, "Password reset failed", err)
		return
	}
	h.renderStatus(w, r, http.StatusUnprocessableEntity, "forgot_password.html", vm)
}

// Dashboard renders the authenticated landing page.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "dashboard.html", &FormViewModel{PageData: PageData{Title: "Dashboard"}})
}

// ProfileForm renders the profile page.
func (h *Handlers) ProfileForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	h.render(w, r, "profile.html", &FormViewModel{
		PageData: PageData{Title: "Profile"},
		Name:     user.Name,
		Email:    user.Email,
	})
}

// UpdateProfile handles the profile form submission.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	vm := &FormViewModel{PageData: PageData{Title: "Profile"}}
	if err := r.ParseForm(); err != nil {
		vm.Error = "Invalid form submission"
		h.renderStatus(w, r, http.StatusBadRequest, "profile.html", vm)
		return
	}
	vm.Name = r.FormValue("name")
	vm.Email = r.FormValue("email")

	_, err := h.auth.UpdateProfile(r.Context(), user.ID, vm.Name, vm.Email, r.FormValue("new_password"))
	switch {
	case err == nil:
		h.setFlash(w, FlashSuccess, "Profile updated.")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	case errors.Is(err, service.ErrFieldsMissing):
		vm.Error = "Name and email are required."
	case errors.Is(err, service.ErrDuplicateEmail):
		vm.Error = "Email already in use by another account."
	case errors.Is(err, service.ErrPasswordTooLong):
		vm.Error = passwordTooLongMessage
	default:
		h.serverError(w, r, "Profile update failed", err)
		return
	}
	h.renderStatus(w, r, http.StatusUnprocessableEntity, "profile.html", vm)
}

// DeleteAccountForm renders the account deletion page.
func (h *Handlers) DeleteAccountForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "delete_account.html", &FormViewModel{PageData: PageData{Title: "Delete account"}})
}

// DeleteAccount removes the current user and all its data.
func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	vm := &FormViewModel{PageData: PageData{Title: "Delete account"}}
	if err := r.ParseForm(); err != nil {
		vm.Error = "Invalid form submission"
		h.renderStatus(w, r, http.StatusBadRequest, "delete_account.html", vm)
		return
	}

	err := h.auth.DeleteAccount(r.Context(), user.ID, r.FormValue("password"), r.FormValue("confirm_password"))
	switch {
	case err == nil:
		h.clearSessionCookie(w)
		h.setFlash(w, FlashInfo, "Your account has been deleted.")
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	case errors.Is(err, service.ErrFieldsMissing):
		vm.Error = "All Fields are required."
	case errors.Is(err, service.ErrPasswordMismatch):
		vm.Error = "Passwords do not match."
	case errors.Is(err, service.ErrInvalidCredentials):
		vm.Error = "Incorrect Password."
	default:
		h.serverError(w, r, "Account deletion failed", err)
		return
	}
	h.renderStatus(w, r, http.StatusUnprocessableEntity, "delete_account.html", vm)
}
