package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeValidation is used when request validation fails
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidDuration is used when a mission duration is not positive
	ErrCodeInvalidDuration = "ERR_INVALID_DURATION"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Entitlement error codes
const (
	// ErrCodeQuotaExceeded is used when a feature's usage cap is reached
	ErrCodeQuotaExceeded = "ERR_QUOTA_EXCEEDED"
	// ErrCodeRaceLost is used when a commit lost the last slot to a
	// concurrent committer
	ErrCodeRaceLost = "ERR_RACE_LOST"
	// ErrCodeTierUnconfigured is used when the account's tier is missing
	// from the catalog; requests fail closed
	ErrCodeTierUnconfigured = "ERR_TIER_UNCONFIGURED"
	// ErrCodeFeatureUnconfigured is used when a feature key is missing
	// from the catalog
	ErrCodeFeatureUnconfigured = "ERR_FEATURE_UNCONFIGURED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeInvalidDuration: http.StatusBadRequest,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	ErrCodeQuotaExceeded: http.StatusTooManyRequests,
	ErrCodeRaceLost:      http.StatusConflict,

	// Catalog gaps are configuration defects, never fail open
	ErrCodeTierUnconfigured:    http.StatusInternalServerError,
	ErrCodeFeatureUnconfigured: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":         ErrCodeNotFound,
	"ACCOUNT_NOT_FOUND": ErrCodeNotFound,
	"ALREADY_EXISTS":    ErrCodeAlreadyExists,
	"INVALID_INPUT":     ErrCodeInvalidInput,
	"INVALID_ACCOUNT":   ErrCodeInvalidInput,
	"INVALID_COUNT":     ErrCodeInvalidInput,
	"INVALID_PERIOD":    ErrCodeInvalidInput,
	"INVALID_DURATION":  ErrCodeInvalidDuration,
	"UNKNOWN_TIER":      ErrCodeTierUnconfigured,
	"UNKNOWN_FEATURE":   ErrCodeFeatureUnconfigured,
	"QUOTA_EXCEEDED":    ErrCodeQuotaExceeded,
}

// NormalizeErrorCode converts a domain error code to the API format.
// If the code is already in the API format or unknown, returns it as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
