// Package errors classifies failures inside the cellflow core and provides
// retry with backoff for the few operations that may be retried.
//
// Most runtime failures in the core are swallowed at a boundary (queue full,
// handler failure, orchestrator failure, shutdown cancellation). The one
// category surfaced to callers is misuse: calling an operation in a state that
// does not allow it.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: a locked SQLite database, a deadline on a slow store.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	CategoryPermanent

	// CategoryMisuse indicates a programmer error, such as submitting to a
	// stopped scheduler or adding a bridge rule after the bridge started.
	CategoryMisuse
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryMisuse:
		return "misuse"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Retries is the number of attempts that have been made.
	Retries int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Retries)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Retries)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{
		Err:      err,
		Category: category,
		Context:  context,
	}
}

// Transient creates a transient error.
func Transient(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransient, context)
}

// Permanent creates a permanent error.
func Permanent(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryPermanent, context)
}

// transientMarkers are substrings of driver errors that clear up on retry.
var transientMarkers = []string{
	"database is locked",
	"SQLITE_BUSY",
	"database table is locked",
}

// Categorize determines how an error should be handled. Explicit
// categories win; driver lock contention and deadlines are transient;
// everything else, nil included, is permanent.
func Categorize(err error) Category {
	var (
		catErr  *CategorizedError
		misuse  *MisuseError
		timeout *TimeoutError
	)
	switch {
	case err == nil:
		return CategoryPermanent
	case errors.As(err, &catErr):
		return catErr.Category
	case errors.As(err, &misuse):
		return CategoryMisuse
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return CategoryTransient
	case errors.Is(err, context.Canceled):
		return CategoryPermanent
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return CategoryTransient
		}
	}
	return CategoryPermanent
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// IsMisuse reports whether the error is a programmer error.
func IsMisuse(err error) bool {
	return Categorize(err) == CategoryMisuse
}
