// Package apperr holds the sentinel errors shared by the services. The HTTP
// layer maps them to notices and redirects.
package apperr

import "errors"

var (
	// Access
	ErrNotAuthorized     = errors.New("not authorized")
	ErrCannotRevokeOwner = errors.New("the owner cannot be removed from the warehouse")

	// Lookup
	ErrNotFound     = errors.New("not found")
	ErrUserNotFound = errors.New("user not found")

	// Catalog
	ErrDuplicateArticle = errors.New("an article with this name already exists in this warehouse")

	// Ledger
	ErrInvalidQuantity        = errors.New("quantity must be a positive number")
	ErrInvalidTransactionType = errors.New("transaction type must be 'in' or 'out'")
	ErrInsufficientStock      = errors.New("not enough stock for this withdrawal")
	ErrDuplicateRequest       = errors.New("this transaction was already submitted")

	// Accounts
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrInvalidInput = errors.New("invalid input")
)
