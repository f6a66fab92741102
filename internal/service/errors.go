package service

import "errors"

// Errors returned by the services. Handlers map them to form messages and
// status codes.
var (
	// ErrDuplicateEmail means another account already uses the email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrPasswordMismatch means the password and its confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrPasswordTooLong means the password exceeds what bcrypt can hash.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrInvalidCredentials means the email or password did not check out.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrFieldsMissing means a required form field was blank.
	ErrFieldsMissing = errors.New("all fields are required")
	// ErrNoSuchAccount means no user is registered under the email.
	ErrNoSuchAccount = errors.New("no account found with this email")
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the record belongs to another user.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidDateFormat means a date was not YYYY-MM-DD.
	ErrInvalidDateFormat = errors.New("invalid date format")
	// ErrInvalidAmount means the amount is not a finite number.
	ErrInvalidAmount = errors.New("invalid amount")
)
