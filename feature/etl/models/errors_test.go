package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncError(t *testing.T) {
	t.Run("Transformation error names the step", func(t *testing.T) {
		err := NewTransformationError("assessment_stats", 2, "derive_total", fmt.Errorf("division by zero"))
		assert.Contains(t, err.Error(), "transform[2] derive_total")
		assert.Contains(t, err.Error(), "assessment_stats")
		assert.Contains(t, err.Error(), "division by zero")
		assert.Equal(t, ErrKindTransformation, KindOf(err))
	})

	t.Run("Unwrap preserves the cause", func(t *testing.T) {
		cause := fmt.Errorf("dial tcp: connection refused")
		err := NewConnectionError("assessment_working", cause)
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("KindOf through wrapping", func(t *testing.T) {
		err := fmt.Errorf("load failed: %w", NewSchemaMismatchError("assessment_stats", "column dropped"))
		assert.Equal(t, ErrKindSchemaMismatch, KindOf(err))
	})

	t.Run("Unclassified errors default to query kind", func(t *testing.T) {
		assert.Equal(t, ErrKindQuery, KindOf(fmt.Errorf("some failure")))
	})
}
