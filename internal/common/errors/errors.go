// Package errors provides the standard error type shared by the API, the
// backend client and the job workers, plus its mapping onto BPMN errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeConfirmationRequired ErrorCode = "CONFIRMATION_REQUIRED"

	ErrCodeBackendRequestFailed ErrorCode = "BACKEND_REQUEST_FAILED"
	ErrCodeBackendUnauthorized  ErrorCode = "BACKEND_UNAUTHORIZED"
	ErrCodeBackendTimeout       ErrorCode = "BACKEND_TIMEOUT"
	ErrCodeResourceNotFound     ErrorCode = "RESOURCE_NOT_FOUND"

	ErrCodeStatusTransitionNotAllowed ErrorCode = "STATUS_TRANSITION_NOT_ALLOWED"
	ErrCodeCatalogLocked              ErrorCode = "CATALOG_LOCKED"
	ErrCodeRelationshipCreateFailed   ErrorCode = "RELATIONSHIP_CREATE_FAILED"

	ErrCodeDraftStoreFailed ErrorCode = "DRAFT_STORE_FAILED"
	ErrCodeTokenUnavailable ErrorCode = "TOKEN_UNAVAILABLE"

	ErrCodeJournalWriteFailed ErrorCode = "JOURNAL_WRITE_FAILED"
	ErrCodeSearchQueryFailed  ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeExportFailed           ErrorCode = "EXPORT_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// As extracts a *StandardError from err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize always returns a *StandardError, wrapping unknown errors as
// INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationFailedError reports a rejected form or job input. Field-level
// messages travel in Metadata["fields"].
func NewValidationFailedError(details string, fields map[string]string) *StandardError {
	e := newError(ErrCodeValidationFailed, "Validation failed", details, false)
	if len(fields) > 0 {
		e.WithMetadata("fields", fields)
	}
	return e
}

func NewInternalError(details string) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", details, false)
}

func NewConfirmationRequiredError(action string) *StandardError {
	return newError(ErrCodeConfirmationRequired, "Confirmation required", fmt.Sprintf("action: %s", action), false)
}

// NewBackendRequestFailedError wraps a non-2xx or transport failure from the
// CPQ backend. 5xx and transport errors are retryable, 4xx are not.
func NewBackendRequestFailedError(resource string, status int, err error) *StandardError {
	details := fmt.Sprintf("resource: %s, status: %d", resource, status)
	if err != nil {
		details = fmt.Sprintf("%s, error: %s", details, err.Error())
	}
	e := newError(ErrCodeBackendRequestFailed, fmt.Sprintf("Request to %s failed", resource), details, status == 0 || status >= 500)
	return e.WithMetadata("status", status)
}

func NewBackendUnauthorizedError(resource string) *StandardError {
	return newError(ErrCodeBackendUnauthorized, "Backend rejected the access token", fmt.Sprintf("resource: %s", resource), false)
}

func NewBackendTimeoutError(resource string, err error) *StandardError {
	return newError(ErrCodeBackendTimeout, fmt.Sprintf("Request to %s timed out", resource), err.Error(), true)
}

func NewResourceNotFoundError(resource, id string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("%s not found", resource), fmt.Sprintf("id: %s", id), false)
}

func NewStatusTransitionNotAllowedError(from, to string) *StandardError {
	return newError(ErrCodeStatusTransitionNotAllowed, "Status transition not allowed", fmt.Sprintf("from: %s, to: %s", from, to), false)
}

func NewCatalogLockedError(catalogID, reason string) *StandardError {
	return newError(ErrCodeCatalogLocked, reason, fmt.Sprintf("catalogId: %s", catalogID), false)
}

func NewRelationshipCreateFailedError(catalogID, categoryID string, err error) *StandardError {
	return newError(ErrCodeRelationshipCreateFailed, "Failed to link category to catalog",
		fmt.Sprintf("catalogId: %s, categoryId: %s, error: %v", catalogID, categoryID, err), true)
}

func NewDraftStoreFailedError(op string, err error) *StandardError {
	return newError(ErrCodeDraftStoreFailed, "Draft store error", fmt.Sprintf("op: %s, error: %s", op, err.Error()), true)
}

func NewTokenUnavailableError(err error) *StandardError {
	return newError(ErrCodeTokenUnavailable, "No access token available", err.Error(), true)
}

func NewJournalWriteFailedError(err error) *StandardError {
	return newError(ErrCodeJournalWriteFailed, "Failed to record submission", err.Error(), true)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed", fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

func NewExportFailedError(format string, err error) *StandardError {
	return newError(ErrCodeExportFailed, fmt.Sprintf("%s export failed", strings.ToUpper(format)), err.Error(), false)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification send failed", fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal codes to the error codes modelled in the
// BPMN diagrams. Codes missing here are thrown under their own name.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:           "OPPORTUNITY_INVALID",
	ErrCodeBackendRequestFailed:       "BACKEND_ERROR",
	ErrCodeBackendUnauthorized:        "BACKEND_ERROR",
	ErrCodeBackendTimeout:             "BACKEND_ERROR",
	ErrCodeStatusTransitionNotAllowed: "TRANSITION_REJECTED",
	ErrCodeCatalogLocked:              "TRANSITION_REJECTED",
	ErrCodeRelationshipCreateFailed:   "RELATIONSHIP_FAILED",
	ErrCodeExportFailed:               "EXPORT_FAILED",
}

// GetRetryCount returns the recommended retry count per code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeBackendRequestFailed,
		ErrCodeRelationshipCreateFailed,
		ErrCodeJournalWriteFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeDraftStoreFailed:
		return 3
	case ErrCodeBackendTimeout, ErrCodeTokenUnavailable:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError maps a StandardError onto the BPMN error thrown to Zeebe.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Classification
// ==========================

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "CONFIRMATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "BACKEND") || strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "TOKEN"):
		return "BACKEND"
	case strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "CATALOG") || strings.Contains(codeStr, "RELATIONSHIP"):
		return "LIFECYCLE"
	case strings.Contains(codeStr, "DRAFT") || strings.Contains(codeStr, "JOURNAL") || strings.Contains(codeStr, "SEARCH"):
		return "STORAGE"
	case strings.Contains(codeStr, "EXPORT"):
		return "EXPORT"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps a code onto the status the JSON API responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeConfirmationRequired:
		return http.StatusPreconditionRequired
	case ErrCodeResourceNotFound:
		return http.StatusNotFound
	case ErrCodeStatusTransitionNotAllowed, ErrCodeCatalogLocked:
		return http.StatusConflict
	case ErrCodeBackendUnauthorized, ErrCodeTokenUnavailable:
		return http.StatusUnauthorized
	case ErrCodeBackendRequestFailed, ErrCodeRelationshipCreateFailed:
		return http.StatusBadGateway
	case ErrCodeBackendTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
