package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDomainErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewFetchError("failed to load tickets", cause)
	require.Equal(t, "failed to load tickets: dial tcp: connection refused", err.Error())
	require.ErrorIs(t, err, cause)
}

func TestHasCodeDirect(t *testing.T) {
	err := NewValidationError("title required", map[string]any{"title": "required"})
	require.True(t, HasCode(err, CodeValidationFailed))
	require.False(t, HasCode(err, CodeAuthFailed))
	require.False(t, HasCode(nil, CodeValidationFailed))
	require.False(t, HasCode(errors.New("plain"), CodeValidationFailed))
}

func TestHasCodeWalksChain(t *testing.T) {
	inner := NewActivityError("failed to record activity", errors.New("boom"))
	outer := NewAuditError("ticket updated but activity not recorded", inner)

	require.True(t, HasCode(outer, CodeAuditFailed))
	require.True(t, HasCode(outer, CodeActivityFailed), "the underlying cause stays visible")
	require.False(t, HasCode(outer, CodeUpdateFailed))

	wrapped := fmt.Errorf("workflow: %w", outer)
	require.True(t, HasCode(wrapped, CodeAuditFailed))
}

func TestNewNotFoundMessage(t *testing.T) {
	err := NewNotFound("ticket", nil)
	require.Equal(t, "ticket not found", err.Error())
	require.True(t, HasCode(err, CodeNotFound))

	var domainErr *DomainError
	require.True(t, errors.As(err, &domainErr))
	require.Equal(t, http.StatusNotFound, domainErr.HTTPStatus)
	require.NotNil(t, domainErr.Details)
}

func TestToDomainError(t *testing.T) {
	require.Nil(t, ToDomainError(nil))

	converted := ToDomainError(errors.New("plain"))
	require.Equal(t, CodeInternalError, converted.Code)

	original := NewAuthError("invalid credentials", nil)
	require.Equal(t, CodeAuthFailed, ToDomainError(original).Code)
	require.Equal(t, CodeAuthFailed, ToDomainError(fmt.Errorf("wrap: %w", original)).Code)
}
