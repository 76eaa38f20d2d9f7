package noop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline-io/faultline-go/pkg/faultline"
)

func TestSend_DiscardsEverything(t *testing.T) {
	transport := NewTransport()

	id, err := transport.Send(context.Background(), &faultline.Event{Message: "x", Level: faultline.LevelError})
	require.NoError(t, err)
	assert.Empty(t, id, "discarded events have no ID")
}
