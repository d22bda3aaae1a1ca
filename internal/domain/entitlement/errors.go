package entitlement

import (
	"errors"
	"fmt"
	"net/http"
)

// QuotaExceededError is returned when a metered action is blocked by its
// quota. Recoverable: callers surface an upgrade prompt.
type QuotaExceededError struct {
	Feature FeatureKey
	Used    int64
	Max     int64
}

// Error implements the error interface
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: %d of %d used", e.Feature.DisplayName(), e.Used, e.Max)
}

// HTTPStatusCode returns the HTTP status code for this error (429 Too Many Requests)
func (e *QuotaExceededError) HTTPStatusCode() int {
	return http.StatusTooManyRequests
}

// NewQuotaExceededError creates a new QuotaExceededError
func NewQuotaExceededError(feature FeatureKey, used, max int64) *QuotaExceededError {
	return &QuotaExceededError{Feature: feature, Used: used, Max: max}
}

// ErrRaceLost is returned when a conditional increment fails after a
// positive check: a concurrent committer took the last slot. Transient;
// the caller may retry the whole evaluate-commit sequence once, and must
// undo or void its own domain write.
var ErrRaceLost = errors.New("usage increment lost the race to a concurrent commit")
