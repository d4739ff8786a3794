package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"configurator/internal/models"
	"configurator/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestTrackStatus(t *testing.T) {
	view := services.TrackStatus(withStatus(newOrder("o1", "u1", 0), models.StatusShipping))
	assert.Equal(t, 3, view.StageIndex)
	require.Len(t, view.Stages, 5)
	for i, s := range view.Stages {
		assert.Equal(t, i <= 3, s.Completed, "stage %d completed", i)
		assert.Equal(t, i == 3, s.Current, "stage %d current", i)
	}
	assert.Equal(t, "Shipping", view.Stages[3].Label)

	unknown := services.TrackStatus(withStatus(newOrder("o2", "u1", 0), "bogus"))
	assert.Equal(t, -1, unknown.StageIndex)
	for _, s := range unknown.Stages {
		assert.False(t, s.Completed)
		assert.False(t, s.Current)
	}

	first := services.TrackStatus(*newOrder("o3", "u1", 0))
	assert.Equal(t, 0, first.StageIndex)
	assert.True(t, first.Stages[0].Current)
	assert.False(t, first.Stages[1].Completed)
}

func TestStatusPoller_DeliversOnlyChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	var (
		mu      sync.Mutex
		calls   int
		changes [][]services.StatusView
	)
	fetch := func(context.Context) ([]services.StatusView, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		switch {
		case calls == 2:
			return nil, errors.New("remote down")
		case calls < 4:
			return []services.StatusView{{OrderID: "o1", Status: "processing", StageIndex: 0}}, nil
		default:
			return []services.StatusView{{OrderID: "o1", Status: "manufacturing", StageIndex: 1}}, nil
		}
	}
	onChange := func(v []services.StatusView) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, v)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		services.NewStatusPoller(2*time.Millisecond, nil).Run(ctx, fetch, onChange)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 6
	}, 2*time.Second, time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 2)
	assert.Equal(t, "processing", changes[0][0].Status)
	assert.Equal(t, "manufacturing", changes[1][0].Status)
}

func TestStatusPoller_StopsWhenCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	fetched := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		services.NewStatusPoller(time.Hour, nil).Run(ctx,
			func(context.Context) ([]services.StatusView, error) {
				select {
				case fetched <- struct{}{}:
				default:
				}
				return nil, nil
			},
			func([]services.StatusView) {})
	}()

	<-fetched
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}
