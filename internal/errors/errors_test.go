package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastPathNoTelemetry(t *testing.T) {
	t.Parallel()

	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Err.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuilderSetsExplicitCategoryAndContext(t *testing.T) {
	t.Parallel()

	ee := Newf("segment %d exceeds length", 3).
		Category(CategoryProcessing).
		Component("segment").
		Context("segment_index", 3).
		Build()

	assert.Equal(t, CategoryProcessing, ee.Category)
	assert.Equal(t, "segment", ee.GetComponent())
	require.NotNil(t, ee.GetContext())
	assert.Equal(t, 3, ee.GetContext()["segment_index"])
}

func TestValidationAndConfigurationHelpers(t *testing.T) {
	t.Parallel()

	ve := ValidationError("input audio is empty")
	assert.Equal(t, CategoryValidation, ve.Category)

	ce := ConfigurationError("segment size must be even")
	assert.Equal(t, CategoryConfiguration, ce.Category)
}

func TestIsCategory(t *testing.T) {
	t.Parallel()

	err := New(fmt.Errorf("worker 2 crashed")).Category(CategoryWorker).Build()
	assert.True(t, IsCategory(err, CategoryWorker))
	assert.False(t, IsCategory(err, CategoryInference))
}

func TestUnwrapAndIs(t *testing.T) {
	t.Parallel()

	base := fmt.Errorf("sentinel")
	wrapped := Wrap(fmt.Errorf("context: %w", base)).Category(CategoryProcessing).Build()

	assert.True(t, Is(wrapped, base))
}

func TestSentryReporterSkipsValidationErrors(t *testing.T) {
	t.Parallel()

	ee := ValidationError("bad segment size")
	assert.False(t, shouldReportToSentry(ee))

	ie := New(fmt.Errorf("session crashed")).Category(CategoryInference).Build()
	assert.True(t, shouldReportToSentry(ie))
}
