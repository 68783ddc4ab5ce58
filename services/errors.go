package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ServiceError is a domain error with a stable code for API responses
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

var (
	ErrItemNotFound       = &ServiceError{Code: "ITEM_NOT_FOUND", Message: "Item not found"}
	ErrUserNotFound       = &ServiceError{Code: "USER_NOT_FOUND", Message: "User not found"}
	ErrSelfMessaging      = &ServiceError{Code: "SELF_MESSAGING", Message: "You cannot message yourself about your own item."}
	ErrNoRecipient        = &ServiceError{Code: "NO_RECIPIENT", Message: "This item has no seller to contact."}
	ErrInvalidMessage     = &ServiceError{Code: "VALIDATION_ERROR", Message: "Message body is required"}
	ErrUsernameTaken      = &ServiceError{Code: "USERNAME_TAKEN", Message: "A user with that username already exists."}
	ErrUserExists         = &ServiceError{Code: "USER_EXISTS", Message: "A user with this identity or email already exists"}
	ErrInvalidCredentials = &ServiceError{Code: "INVALID_CREDENTIALS", Message: "Please enter a correct username and password."}
	ErrNotItemOwner       = &ServiceError{Code: "FORBIDDEN", Message: "Only the seller can change this item"}
)

// ValidationError reports invalid input for a single field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err carries user input problems
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) || errors.Is(err, ErrInvalidMessage)
}

// isDuplicateKey detects unique constraint violations on PostgreSQL and SQLite
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "unique")
}
