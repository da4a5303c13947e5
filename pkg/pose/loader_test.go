package pose

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/mockingbird/pkg/frame"
)

func TestLoader_ReadyAfterLoad(t *testing.T) {
	release := make(chan struct{})
	mock := NewMock()
	l := NewLoader(func() (Engine, error) {
		<-release
		return mock, nil
	}, nil)

	l.Start()
	assert.False(t, l.Ready())
	_, err := l.Detect(context.Background(), frame.Frame{Seq: 1})
	assert.ErrorIs(t, err, ErrNotReady)

	close(release)
	require.NoError(t, l.Wait(context.Background()))
	assert.True(t, l.Ready())

	_, err = l.Detect(context.Background(), frame.Frame{Seq: 2})
	require.NoError(t, err)
	assert.Len(t, mock.Calls(), 1)

	require.NoError(t, l.Close())
	assert.False(t, l.Ready())
	_, err = l.Detect(context.Background(), frame.Frame{Seq: 3})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLoader_LoadFailure(t *testing.T) {
	l := NewLoader(func() (Engine, error) {
		return nil, ErrModelNotFound
	}, nil)
	l.Start()
	l.Start()

	assert.ErrorIs(t, l.Wait(context.Background()), ErrModelNotFound)
	assert.ErrorIs(t, l.Err(), ErrModelNotFound)
	assert.False(t, l.Ready())
}

func TestLoader_CloseBeforeLoad(t *testing.T) {
	release := make(chan struct{})
	mock := NewMock()
	l := NewLoader(func() (Engine, error) {
		<-release
		return mock, nil
	}, nil)
	l.Start()

	require.NoError(t, l.Close())
	close(release)
	require.NoError(t, l.Wait(context.Background()))
	assert.False(t, l.Ready())
	assert.False(t, mock.Ready(), "late engine should be closed")
}

func TestLoader_WaitContext(t *testing.T) {
	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })
	l := NewLoader(func() (Engine, error) {
		<-stop
		return nil, ErrClosed
	}, nil)
	l.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.True(t, errors.Is(l.Wait(ctx), context.DeadlineExceeded))
}
