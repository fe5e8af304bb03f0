package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"adluc/discovery-service/internal/events"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishIngested(ctx context.Context, ev events.IngestEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func TestMulti_PublishesToAll(t *testing.T) {
	ctx := context.Background()
	ev := events.IngestEvent{Type: events.ListingsIngestedChannel, RunID: "r1", Inserted: 3, At: time.Now()}

	a, b := new(mockPublisher), new(mockPublisher)
	a.On("PublishIngested", ctx, ev).Return(nil).Once()
	b.On("PublishIngested", ctx, ev).Return(nil).Once()

	assert.NoError(t, events.Multi{a, b}.PublishIngested(ctx, ev))
	a.AssertExpectations(t)
	b.AssertExpectations(t)
}

func TestMulti_OneFailureDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	ev := events.IngestEvent{RunID: "r2"}
	boom := errors.New("redis down")

	a, b := new(mockPublisher), new(mockPublisher)
	a.On("PublishIngested", ctx, ev).Return(boom).Once()
	b.On("PublishIngested", ctx, ev).Return(nil).Once()

	err := events.Multi{a, b}.PublishIngested(ctx, ev)
	assert.ErrorIs(t, err, boom)
	b.AssertExpectations(t)
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, events.Multi{}.PublishIngested(context.Background(), events.IngestEvent{}))
}
