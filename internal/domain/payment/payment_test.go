package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayErrorMatchesSentinelAndCause(t *testing.T) {
	err := error(&GatewayError{Op: "create_order", Err: context.DeadlineExceeded})

	assert.ErrorIs(t, err, ErrGateway)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var gwErr *GatewayError
	assert.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "create_order", gwErr.Op)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.Equal(t, "DEMO_TRANSACTION_42", DemoReference("42"))
}
