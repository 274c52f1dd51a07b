package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	err := New(AlreadyExists, "order %s already placed", "ord-1")
	assert.Equal(t, AlreadyExists, KindOf(err))
	assert.Contains(t, err.Error(), "ord-1")

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, AlreadyExists, KindOf(wrapped))

	assert.Equal(t, DownstreamServiceError, KindOf(errors.New("plain")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(PaymentGatewayFailure, cause, "authorize call failed")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, PaymentGatewayFailure, KindOf(err))
	assert.Contains(t, err.Error(), "authorize call failed")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(Fatal, "out of file descriptors")))
	assert.True(t, IsFatal(fmt.Errorf("wrapped: %w", New(Fatal, "corruption"))))
	assert.False(t, IsFatal(New(PaymentGatewayFailure, "declined")))
	assert.False(t, IsFatal(errors.New("plain")))
	assert.False(t, IsFatal(nil))
}

func TestDetails(t *testing.T) {
	err := New(PaymentGatewayFailure, "declined").
		WithDetail("ErrorMessage", "insufficient funds").
		WithDetail("authorizationCode", "AUTH123")

	assert.Equal(t, "insufficient funds", Detail(err, "ErrorMessage"))
	assert.Equal(t, "AUTH123", Detail(err, "authorizationCode"))
	assert.Empty(t, Detail(err, "missing"))
	assert.Empty(t, Detail(errors.New("plain"), "ErrorMessage"))
}
