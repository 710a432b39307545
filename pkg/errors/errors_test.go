package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/catalogsync/pkg/errors"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{
			Resource: "record",
			ID:       "42",
		}
		assert.Equal(t, "record with ID 42 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		base := pkgerrors.NewNotFoundError("record", "7")
		wrapped := fmt.Errorf("link: %w", base)
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("name", "", "is required")
		assert.Equal(t, "validation failed for field name: is required", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "invalid configuration"}
		assert.Equal(t, "validation failed: invalid configuration", err.Error())
	})
}

func TestTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      string
		retryable bool
	}{
		{"transport", pkgerrors.NewTransportError("fetch", "/productos/", 503, errors.New("bad gateway")), "TransportFailure", true},
		{"auth", pkgerrors.NewAuthenticationError("/productos/", 401, "token expired"), "AuthFailure", false},
		{"rejected", pkgerrors.NewRejectedError(400, "sku already exists"), "RemoteRejected", false},
		{"constraint", pkgerrors.NewConstraintError("unique_remote_id", "7", []int64{1, 2}, nil), "LocalConstraintViolation", false},
		{"busy", pkgerrors.ErrSessionBusy, "SessionBusy", true},
		{"malformed", pkgerrors.NewParseError("json", "/productos/", "unexpected EOF", nil), "Malformed", false},
		{"stale", fmt.Errorf("apply: %w", pkgerrors.ErrStale), "Stale", true},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, pkgerrors.Kind(tt.err))
			assert.Equal(t, tt.retryable, pkgerrors.IsRetryable(tt.err))
		})
	}
}

func TestFatalErrorUnwrapsCause(t *testing.T) {
	cause := pkgerrors.NewConstraintError("unique_remote_id", "7", []int64{3, 9}, nil)
	err := pkgerrors.NewFatalError("abc", "index", cause)

	assert.True(t, pkgerrors.IsFatal(err))
	assert.True(t, errors.Is(err, pkgerrors.ErrConstraint))
	assert.Equal(t, "LocalConstraintViolation", pkgerrors.Kind(err))
	assert.Contains(t, err.Error(), "aborted during index")

	var ce *pkgerrors.ConstraintError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, []int64{3, 9}, ce.LocalIDs)
}

func TestReexportedHelpers(t *testing.T) {
	err := pkgerrors.NewResourceError("link", "record", "3",
		pkgerrors.NewConstraintError("unique_remote_id", "7", []int64{3}, nil))

	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrConstraint))
	assert.False(t, pkgerrors.Is(err, pkgerrors.ErrNotFound))

	var ce *pkgerrors.ConstraintError
	require.True(t, pkgerrors.As(err, &ce))
	assert.Equal(t, "unique_remote_id", ce.Constraint)
}

func TestTransportErrorMessage(t *testing.T) {
	err := pkgerrors.NewTransportError("create", "/productos/", 0, errors.New("connection refused"))
	assert.Equal(t, "transport error during create /productos/: connection refused", err.Error())

	withStatus := pkgerrors.NewTransportError("fetch", "/productos/", 502, errors.New("bad gateway"))
	assert.Contains(t, withStatus.Error(), "status 502")
}

func TestWrapHelpersPassNil(t *testing.T) {
	assert.Nil(t, pkgerrors.WrapResource("insert", "record", "", nil))
	assert.Nil(t, pkgerrors.WrapParse("json", "body", nil))
	assert.Nil(t, pkgerrors.WrapTransport("fetch", "/", nil))
	assert.Nil(t, pkgerrors.WrapValidation("name", nil))
}
