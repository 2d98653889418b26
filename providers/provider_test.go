package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportErrorMessages(t *testing.T) {
	assert.Equal(t, "n8n: request timed out",
		(&TransportError{Provider: "n8n", Timeout: true, Err: context.DeadlineExceeded}).Error())
	assert.Equal(t, "n8n: upstream returned status 500: boom",
		(&TransportError{Provider: "n8n", StatusCode: 500, Message: "boom"}).Error())
	assert.Equal(t, "openai: dial failed",
		(&TransportError{Provider: "openai", Err: errors.New("dial failed")}).Error())
}

func TestAsTransportError(t *testing.T) {
	base := &TransportError{Provider: "n8n", Timeout: true, Err: context.DeadlineExceeded}
	wrapped := fmt.Errorf("generate: %w", base)

	te, ok := AsTransportError(wrapped)
	assert.True(t, ok)
	assert.Same(t, base, te)
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)

	_, ok = AsTransportError(errors.New("other"))
	assert.False(t, ok)
}
