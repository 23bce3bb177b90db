package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLazyEmbedder_InitializesOnceUnderConcurrency(t *testing.T) {
	inner := new(mockEmbedder)
	inner.On("Embed", mock.Anything, mock.Anything, PurposeQuery).Return([]float32{1, 2}, nil)

	var calls atomic.Int32
	release := make(chan struct{})
	factory := func(ctx context.Context) (Embedder, error) {
		calls.Add(1)
		<-release
		return inner, nil
	}
	lazy := NewLazyEmbedder(factory, zap.NewNop())

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lazy.Embed(context.Background(), "hello", PurposeQuery)
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// later callers reuse the handle
	_, err := lazy.Embed(context.Background(), "again", PurposeQuery)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	inner.AssertNumberOfCalls(t, "Embed", callers+1)
}

func TestLazyEmbedder_RetriesAfterFailure(t *testing.T) {
	inner := new(mockEmbedder)
	inner.On("Embed", mock.Anything, "hello", PurposeDocument).Return([]float32{1}, nil)

	var calls atomic.Int32
	factory := func(ctx context.Context) (Embedder, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("model not pulled")
		}
		return inner, nil
	}
	lazy := NewLazyEmbedder(factory, zap.NewNop())

	_, err := lazy.Embed(context.Background(), "hello", PurposeDocument)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not pulled")

	vec, err := lazy.Embed(context.Background(), "hello", PurposeDocument)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLazyEmbedder_InitSurvivesCallerCancellation(t *testing.T) {
	inner := new(mockEmbedder)
	inner.On("Embed", mock.Anything, mock.Anything, mock.Anything).Return([]float32{1}, nil)

	factory := func(ctx context.Context) (Embedder, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return inner, nil
	}
	lazy := NewLazyEmbedder(factory, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// the factory sees a detached context; the inner mock ignores ctx
	_, err := lazy.Embed(ctx, "x", PurposeQuery)
	require.NoError(t, err)
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	inner := new(mockEmbedder)
	inner.On("Embed", mock.Anything, "a", PurposeQuery).Return([]float32{1}, nil)
	inner.On("Embed", mock.Anything, "a", PurposeDocument).Return([]float32{2}, nil)

	cached := NewCachedEmbedder(inner, time.Minute)

	vec, err := cached.Embed(ctx, "a", PurposeQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)

	vec, err = cached.Embed(ctx, "a", PurposeQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	inner.AssertNumberOfCalls(t, "Embed", 1)

	// same text, other purpose is a different key
	vec, err = cached.Embed(ctx, "a", PurposeDocument)
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, vec)
	inner.AssertNumberOfCalls(t, "Embed", 2)
}

func TestCachedEmbedder_Expires(t *testing.T) {
	inner := new(mockEmbedder)
	inner.On("Embed", mock.Anything, "a", PurposeQuery).Return([]float32{1}, nil)

	cached := NewCachedEmbedder(inner, 20*time.Millisecond)

	_, err := cached.Embed(context.Background(), "a", PurposeQuery)
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), "a", PurposeQuery)
	require.NoError(t, err)
	inner.AssertNumberOfCalls(t, "Embed", 1)

	time.Sleep(50 * time.Millisecond)

	_, err = cached.Embed(context.Background(), "a", PurposeQuery)
	require.NoError(t, err)
	inner.AssertNumberOfCalls(t, "Embed", 2)
}

func TestCachedEmbedder_DoesNotCacheErrors(t *testing.T) {
	inner := new(mockEmbedder)
	inner.On("Embed", mock.Anything, "a", PurposeQuery).Return(nil, errors.New("timeout")).Once()
	inner.On("Embed", mock.Anything, "a", PurposeQuery).Return([]float32{1}, nil).Once()

	cached := NewCachedEmbedder(inner, time.Minute)

	_, err := cached.Embed(context.Background(), "a", PurposeQuery)
	require.Error(t, err)

	vec, err := cached.Embed(context.Background(), "a", PurposeQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
}

func TestCachedEmbedder_Disabled(t *testing.T) {
	inner := new(mockEmbedder)
	inner.On("Embed", mock.Anything, "a", PurposeQuery).Return([]float32{1}, nil)

	cached := NewCachedEmbedder(inner, 0)
	for i := 0; i < 3; i++ {
		_, err := cached.Embed(context.Background(), "a", PurposeQuery)
		require.NoError(t, err)
	}
	inner.AssertNumberOfCalls(t, "Embed", 3)
}
