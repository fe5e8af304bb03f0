package scraper_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"adluc/discovery-service/internal/db"
	"adluc/discovery-service/internal/model"
	"adluc/discovery-service/internal/scheduler"
	"adluc/discovery-service/internal/scraper"
)

// ctxStore honours ctx on every call, the way a pgx-backed store does.
type ctxStore struct {
	*db.MemoryStore
}

func (s ctxStore) FindByExternalLink(ctx context.Context, link string) (*model.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemoryStore.FindByExternalLink(ctx, link)
}

func TestRunCycle_FallbackSurvivesBatchDeadline(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	store := ctxStore{db.NewMemoryStore()}
	ing := scraper.NewIngestor(scraper.IngestorConfig{
		Sources:      []string{srcJobs, srcJobs2, srcGrants},
		BatchTimeout: 50 * time.Millisecond,
	}, &fakeFetcher{gate: gate}, store, nil, nil, zap.NewNop())

	report, err := ing.Trigger(context.Background())
	require.NoError(t, err)
	assert.True(t, report.FallbackUsed)
	assert.Equal(t, 3, report.SourcesFailed)
	assert.Equal(t, 3, report.Inserted)
	assert.Equal(t, 3, store.Len())
}

func TestShutdown_WaitsForAbandonedCycle(t *testing.T) {
	gate := make(chan struct{})
	store := db.NewMemoryStore()
	f := &fakeFetcher{
		bodies: map[string]string{srcJobs: rssFeed("https://www.itjobs.pt/oferta", 2)},
		gate:   gate,
	}
	ing := newIngestor(f, store, srcJobs)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := ing.Trigger(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	stopped := make(chan error, 1)
	go func() { stopped <- ing.Shutdown(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Shutdown returned while a cycle was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return after the cycle finished")
	}
	assert.Equal(t, 2, store.Len(), "cycle committed before Shutdown returned")
}

func TestShutdown_RejectsNewTriggers(t *testing.T) {
	ing := newIngestor(&fakeFetcher{}, db.NewMemoryStore(), srcJobs)
	require.NoError(t, ing.Shutdown(context.Background()))

	_, err := ing.Trigger(context.Background())
	assert.ErrorIs(t, err, scraper.ErrShuttingDown)
}

func TestShutdown_GivesUpWhenCtxEnds(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	ing := newIngestor(&fakeFetcher{gate: gate}, db.NewMemoryStore(), srcJobs)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _ = ing.Trigger(ctx)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer waitCancel()
	assert.ErrorIs(t, ing.Shutdown(waitCtx), context.DeadlineExceeded)
}

func TestRun_CancelledTriggerIsNotLoggedAsFailure(t *testing.T) {
	gate := make(chan struct{})
	core, logs := observer.New(zapcore.DebugLevel)
	f := &fakeFetcher{
		bodies: map[string]string{srcJobs: rssFeed("https://www.itjobs.pt/oferta", 1)},
		gate:   gate,
	}
	ing := scraper.NewIngestor(scraper.IngestorConfig{Sources: []string{srcJobs}},
		f, db.NewMemoryStore(), nil, nil, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ing.Run(ctx)

	close(gate)
	require.NoError(t, ing.Shutdown(context.Background()))
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

// Shutdown order used by main: the scheduler's context is already cancelled
// when Stop runs, so Stop alone cannot hold the cycle; Shutdown must.
func TestShutdown_AfterSchedulerStop(t *testing.T) {
	gate := make(chan struct{})
	store := db.NewMemoryStore()
	f := &fakeFetcher{
		bodies: map[string]string{srcJobs: rssFeed("https://www.itjobs.pt/oferta", 1)},
		gate:   gate,
	}
	ing := newIngestor(f, store, srcJobs)

	ctx, cancel := context.WithCancel(context.Background())
	sched := scheduler.New(ing, time.Hour, true, zap.NewNop())
	require.NoError(t, sched.Start(ctx))
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	sched.Stop()
	time.AfterFunc(100*time.Millisecond, func() { close(gate) })

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, ing.Shutdown(waitCtx))
	assert.Equal(t, 1, store.Len())
}
