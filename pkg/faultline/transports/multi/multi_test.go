package multi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline-io/faultline-go/pkg/faultline"
)

type fakeTransport struct {
	id     string
	err    error
	events []*faultline.Event
}

func (t *fakeTransport) Send(_ context.Context, ev *faultline.Event) (string, error) {
	t.events = append(t.events, ev)
	return t.id, t.err
}

func TestSend_FansOutToAll(t *testing.T) {
	a := &fakeTransport{id: "a-1"}
	b := &fakeTransport{id: "b-1"}
	transport := NewTransport(a, b)

	id, err := transport.Send(context.Background(), &faultline.Event{Message: "x"})
	require.NoError(t, err)
	assert.Equal(t, "a-1", id, "first non-empty ID wins")
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestSend_ContinuesPastFailures(t *testing.T) {
	failing := &fakeTransport{err: errors.New("down")}
	working := &fakeTransport{id: "w-1"}
	transport := NewTransport(failing, working)

	id, err := transport.Send(context.Background(), &faultline.Event{Message: "x"})
	require.NoError(t, err, "one successful delivery suppresses partial failures")
	assert.Equal(t, "w-1", id)
	assert.Len(t, working.events, 1)
}

func TestSend_AllFail(t *testing.T) {
	errA := errors.New("down a")
	errB := errors.New("down b")
	transport := NewTransport(&fakeTransport{err: errA}, &fakeTransport{err: errB})

	id, err := transport.Send(context.Background(), &faultline.Event{Message: "x"})
	require.Error(t, err)
	assert.Empty(t, id)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestSend_NoTransports(t *testing.T) {
	transport := NewTransport()

	id, err := transport.Send(context.Background(), &faultline.Event{Message: "x"})
	require.NoError(t, err)
	assert.Empty(t, id)
}
