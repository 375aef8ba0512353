package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedError(t *testing.T) {
	wrapped := fmt.Errorf("load space: %w", Clone(ErrNotFound, "space not found"))

	appErr := FromError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "space not found", appErr.Message)
}

func TestFromErrorFallsBackToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestCloneMatchesTemplateByCode(t *testing.T) {
	clone := Clone(ErrForbidden, "not a member of this space")
	assert.ErrorIs(t, clone, ErrForbidden)
	assert.NotErrorIs(t, clone, ErrNotFound)
}

func TestWithIDDoesNotMutateTemplate(t *testing.T) {
	tagged := WithID(ErrUpstream, "abc")
	assert.Equal(t, "abc", tagged.ErrorID)
	assert.Empty(t, ErrUpstream.ErrorID)
}
