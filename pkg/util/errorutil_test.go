package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorUnwrap(t *testing.T) {
	inner := errors.New("socket closed")
	err := NewStoreUnavailable(inner)

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "socket closed")
}

func TestIsCode(t *testing.T) {
	err := NewConflict("ticket already resolved", nil)

	assert.True(t, IsCode(err, "CONFLICT"))
	assert.False(t, IsCode(err, "NOT_FOUND"))
	assert.False(t, IsCode(errors.New("plain"), "CONFLICT"))
	assert.False(t, IsCode(nil, "CONFLICT"))
}

func TestIsCodeSeesWrappedErrors(t *testing.T) {
	err := fmt.Errorf("resolving: %w", NewGenerationFailed(errors.New("upstream 500")))
	assert.True(t, IsCode(err, "GENERATION_FAILED"))
}

func TestToDomainErrorPassthrough(t *testing.T) {
	original := NewNotFound("ticket", map[string]any{"id": "x"})
	converted := ToDomainError(original)

	require.NotNil(t, converted)
	assert.Equal(t, "NOT_FOUND", converted.Code)
	assert.Equal(t, http.StatusNotFound, converted.HTTPStatus)
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	converted := ToDomainError(fmt.Errorf("query ticket: %w", pgx.ErrNoRows))

	require.NotNil(t, converted)
	assert.Equal(t, "NOT_FOUND", converted.Code)
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	converted := ToDomainError(errors.New("boom"))

	require.NotNil(t, converted)
	assert.Equal(t, "INTERNAL_ERROR", converted.Code)
	assert.Equal(t, http.StatusInternalServerError, converted.HTTPStatus)
}

func TestToDomainErrorNil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}
