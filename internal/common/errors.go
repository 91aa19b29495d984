package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by every module.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInternal          = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var target *AppError
	if !errors.As(err, &target) {
		return false
	}
	return target.Code == code
}

// ValidationError reports malformed or missing input. It is raised before any mutation.
func ValidationError(message string, details any) *AppError {
	return &AppError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest, Details: details}
}

// StockShortage is the payload carried by an insufficient stock error.
type StockShortage struct {
	MedicineID   string `json:"medicineId,omitempty"`
	MedicineName string `json:"medicineName,omitempty"`
	Available    int    `json:"available"`
	Requested    int    `json:"requested"`
}

// InsufficientStockError reports a subtract that would drive stock negative.
func InsufficientStockError(s StockShortage) *AppError {
	name := s.MedicineName
	if name == "" {
		name = s.MedicineID
	}
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    fmt.Sprintf("Insufficient stock for %s. Available: %d, Required: %d", name, s.Available, s.Requested),
		HTTPStatus: http.StatusConflict,
		Details:    s,
	}
}

// Shortage extracts the stock shortage payload from err, if any.
func Shortage(err error) (StockShortage, bool) {
	var target *AppError
	if !errors.As(err, &target) || target.Code != CodeInsufficientStock {
		return StockShortage{}, false
	}
	s, ok := target.Details.(StockShortage)
	return s, ok
}

// NotFoundError reports an unresolved identifier.
func NotFoundError(resource string) *AppError {
	return &AppError{Code: CodeNotFound, Message: resource + " not found", HTTPStatus: http.StatusNotFound}
}

// ConflictError reports a uniqueness or state conflict.
func ConflictError(message string, err error) *AppError {
	return &AppError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict, Err: err}
}

// UnauthorizedError reports missing or invalid credentials.
func UnauthorizedError(message string, err error) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized, Err: err}
}

// ForbiddenError reports an authenticated actor without the required role.
func ForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}
