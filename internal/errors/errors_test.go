package errors

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu       sync.Mutex
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

type kindError struct{ category ErrorCategory }

func (k kindError) Error() string                { return "kind error" }
func (k kindError) ErrorCategory() ErrorCategory { return k.category }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.IsReported())
}

func TestBuilderKeepsExplicitFields(t *testing.T) {
	t.Parallel()

	ee := Newf("fetch failed: %d", 503).
		Component("pixabay").
		Category(CategoryNetwork).
		Priority("bogus").
		Context("status_code", 503).
		Build()

	assert.Equal(t, "fetch failed: 503", ee.Error())
	assert.Equal(t, "pixabay", ee.GetComponent())
	assert.Equal(t, CategoryNetwork, ee.Category)
	assert.Equal(t, PriorityMedium, ee.Priority)

	v, ok := ee.ContextValue("status_code")
	require.True(t, ok)
	assert.Equal(t, 503, v)

	ctx := ee.GetContext()
	ctx["status_code"] = 0
	v, _ = ee.ContextValue("status_code")
	assert.Equal(t, 503, v, "GetContext must return a copy")
}

func TestEnhancedErrorIsMatchesCategoryAndChain(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("sentinel")
	ee := New(fmt.Errorf("wrapped: %w", sentinel)).Category(CategoryDatabase).Build()

	assert.True(t, Is(ee, sentinel))
	assert.True(t, Is(ee, &EnhancedError{Category: CategoryDatabase}))
	assert.False(t, Is(ee, &EnhancedError{Category: CategoryNetwork}))
}

func TestIsCategoryHonoursCategorizedErrors(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("outer: %w", kindError{category: CategoryNotFound})
	assert.True(t, IsNotFound(err))
	assert.False(t, IsCategory(err, CategoryDatabase))

	ee := New(NewStd("missing")).Category(CategoryNotFound).Build()
	assert.True(t, IsNotFound(ee))
}

// wrapperError is a categorized error that wraps a differently
// categorized cause.
type wrapperError struct {
	category ErrorCategory
	cause    error
}

func (w *wrapperError) Error() string                { return "wrapped: " + w.cause.Error() }
func (w *wrapperError) Unwrap() error                { return w.cause }
func (w *wrapperError) ErrorCategory() ErrorCategory { return w.category }

func TestIsCategoryWalksWholeChain(t *testing.T) {
	t.Parallel()

	cause := kindError{category: CategoryLimit}
	err := fmt.Errorf("fetch: %w", &wrapperError{category: CategoryHTTP, cause: cause})
	assert.True(t, IsCategory(err, CategoryHTTP))
	assert.True(t, IsCategory(err, CategoryLimit), "cause category hidden by wrapper")
	assert.False(t, IsCategory(err, CategoryDatabase))

	enhanced := New(&wrapperError{category: CategoryHTTP, cause: New(NewStd("locked")).Category(CategoryDatabase).Build()}).
		Category(CategoryNetwork).
		Build()
	assert.True(t, IsCategory(enhanced, CategoryNetwork))
	assert.True(t, IsCategory(enhanced, CategoryHTTP))
	assert.True(t, IsCategory(enhanced, CategoryDatabase))

	joined := Join(NewStd("plain"), kindError{category: CategoryNotFound})
	assert.True(t, IsNotFound(joined))
	assert.False(t, IsCategory(nil, CategoryGeneric))
}

func TestTelemetryPathDetectsCategoryAndReports(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(kindError{category: CategoryLimit}).Build()

	assert.Equal(t, CategoryLimit, ee.Category)
	assert.True(t, ee.IsReported())
	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
}

func TestDetectCategoryHeuristics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		component string
		want      ErrorCategory
	}{
		{"connection", NewStd("connection refused"), "", CategoryNetwork},
		{"timeout", NewStd("context deadline exceeded"), "", CategoryTimeout},
		{"validation", NewStd("invalid page"), "", CategoryValidation},
		{"datastore component", NewStd("boom"), "datastore", CategoryDatabase},
		{"pixabay component", NewStd("boom"), "pixabay", CategoryHTTP},
		{"fallback", NewStd("boom"), "", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, detectCategory(tt.err, tt.component))
		})
	}
}

func TestScrubMessageForPrivacy(t *testing.T) {
	t.Parallel()

	scrubbed := scrubMessageForPrivacy("GET https://pixabay.com/api/?key=12345678-abcdef0123456789abcdef&q=cats failed")
	assert.Equal(t, "GET https://pixabay.com/api/?[REDACTED] failed", scrubbed)

	scrubbed = scrubMessageForPrivacy("config error: api_key=secret123 is invalid")
	assert.Contains(t, scrubbed, "[API_KEY_REDACTED]")
	assert.NotContains(t, scrubbed, "secret123")

	scrubbed = scrubMessageForPrivacy("bad key 12345678-abcdef0123456789abcdef0")
	assert.NotContains(t, scrubbed, "abcdef0123456789")
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).
		Component("datastore").
		Category(CategoryDatabase).
		Context("operation", "store_images").
		Build()

	assert.Equal(t, "Datastore Database Error Store Images", generateErrorTitle(ee))

	bare := New(NewStd("x")).Build()
	assert.Equal(t, "generic", generateErrorTitle(bare))
}
