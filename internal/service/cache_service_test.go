package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/noah-isme/sma-gradebook/internal/dto"
)

type failingCache struct{ err error }

func (f failingCache) Get(context.Context, string, interface{}) error { return f.err }
func (f failingCache) Set(context.Context, string, interface{}, time.Duration) error {
	return f.err
}
func (f failingCache) DeleteByPattern(context.Context, string) error { return f.err }

func TestCacheServiceDisabled(t *testing.T) {
	var nilService *CacheService
	assert.False(t, nilService.Enabled())

	svc := NewCacheService(newMemoryCache(), nil, 0, zaptest.NewLogger(t), false)
	assert.False(t, svc.Enabled())

	var dest dto.CourseSummary
	hit, err := svc.Get(context.Background(), summaryCacheKey, &dest)
	assert.False(t, hit)
	assert.NoError(t, err)
	assert.NoError(t, svc.Set(context.Background(), summaryCacheKey, dto.CourseSummary{}, 0))
	assert.NoError(t, svc.Invalidate(context.Background(), "*"))
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemoryCache(), metrics, time.Minute, zaptest.NewLogger(t), true)
	ctx := context.Background()

	var dest dto.CourseSummary
	hit, err := svc.Get(ctx, summaryCacheKey, &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, summaryCacheKey, dto.CourseSummary{Name: "Algoritmos"}, 0))
	hit, err = svc.Get(ctx, summaryCacheKey, &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Algoritmos", dest.Name)
}

func TestCacheServiceBackendErrors(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewCacheService(failingCache{err: boom}, nil, time.Minute, zaptest.NewLogger(t), true)
	ctx := context.Background()

	var dest dto.CourseSummary
	hit, err := svc.Get(ctx, summaryCacheKey, &dest)
	assert.False(t, hit)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, svc.Set(ctx, summaryCacheKey, dest, 0), boom)
	assert.ErrorIs(t, svc.Invalidate(ctx, "*"), boom)
}
