package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/metrics"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	got    []model.Event
	failOn string
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev.ID == p.failOn {
		return errors.New("broker down")
	}
	p.got = append(p.got, ev)
	return nil
}

func (p *recordingPublisher) events() []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Event(nil), p.got...)
}

func seedOutbox(t *testing.T, ids ...string) *repository.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	room, err := store.CreateRoom(ctx, model.Room{Number: "1", Capacity: 1})
	require.NoError(t, err)
	require.NoError(t, store.InRoom(ctx, room.ID, func(tx repository.IntervalTx) error {
		for _, id := range ids {
			if err := tx.Enqueue(ctx, model.Event{ID: id, Type: model.EventReservationCreated, ReservationID: 1}); err != nil {
				return err
			}
		}
		return nil
	}))
	return store
}

func TestProcessOnceStopsAtFirstFailureAndRetries(t *testing.T) {
	store := seedOutbox(t, "e1", "e2", "e3")
	pub := &recordingPublisher{failOn: "e2"}
	m := metrics.New("test")
	w := NewOutboxWorker(store, pub, nil, m, time.Second, 10)

	sent, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outbox().WithLabelValues("failed")))

	pending, err := store.PendingEvents(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "e2", pending[0].Event.ID)

	pub.failOn = ""
	sent, err = w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	var ids []string
	for _, ev := range pub.events() {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"e1", "e2", "e3"}, ids)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Outbox().WithLabelValues("sent")))
}

func TestStartDrainsUntilCancelled(t *testing.T) {
	store := seedOutbox(t, "a", "b")
	pub := &recordingPublisher{}
	w := NewOutboxWorker(store, pub, nil, nil, 5*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(pub.events()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
