package datastore

import (
	"context"
	"strings"

	"github.com/tphakala/pixalb/internal/errors"
)

// storageFailureMarkers mark errors that mean the cache file itself is damaged
// or out of space rather than a single statement failing.
var storageFailureMarkers = []string{"disk full", "no space", "corrupt", "malformed", "readonly"}

// contentionMarkers mark lock contention between writers.
var contentionMarkers = []string{"database is locked", "busy", "deadlock"}

// dbError categorizes a failed storage call. kv are alternating context keys
// and values.
func dbError(err error, operation string, kv ...any) error {
	return withPairs(errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Priority(priorityOf(err)).
		Context("operation", operation), kv).
		Build()
}

// notFoundError keeps sentinel matchable with errors.Is while classifying it
// as not-found.
func notFoundError(sentinel error, operation string, kv ...any) error {
	return withPairs(errors.New(sentinel).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Priority(errors.PriorityLow).
		Context("operation", operation), kv).
		Build()
}

func priorityOf(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.PriorityLow
	}
	msg := strings.ToLower(err.Error())
	for _, m := range storageFailureMarkers {
		if strings.Contains(msg, m) {
			return errors.PriorityCritical
		}
	}
	for _, m := range contentionMarkers {
		if strings.Contains(msg, m) {
			return errors.PriorityHigh
		}
	}
	return errors.PriorityMedium
}

func withPairs(b *errors.ErrorBuilder, kv []any) *errors.ErrorBuilder {
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			b = b.Context(key, kv[i+1])
		}
	}
	return b
}
