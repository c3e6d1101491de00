package feed

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasklist/internal/model"
)

func receive(t *testing.T, sub *Subscription) model.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
		return model.Snapshot{}
	}
}

func assertNothingPending(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case snap := <-sub.C():
		t.Fatalf("unexpected snapshot v%d", snap.Version)
	default:
	}
}

func TestFeed_SubscribeDeliversLatest(t *testing.T) {
	f := New(zap.NewNop())

	early := f.Subscribe()
	defer early.Close()
	assertNothingPending(t, early)

	f.Publish([]model.Task{{ID: 1, Title: "Buy milk"}})

	late := f.Subscribe()
	defer late.Close()

	for _, sub := range []*Subscription{early, late} {
		snap := receive(t, sub)
		assert.Equal(t, uint64(1), snap.Version)
		require.Len(t, snap.Tasks, 1)
		assert.Equal(t, "Buy milk", snap.Tasks[0].Title)
	}
}

func TestFeed_CoalescesForSlowSubscriber(t *testing.T) {
	f := New(zap.NewNop())
	sub := f.Subscribe()
	defer sub.Close()

	for i := 1; i <= 5; i++ {
		f.Publish([]model.Task{{ID: int64(i), Title: "v"}})
	}

	snap := receive(t, sub)
	assert.Equal(t, uint64(5), snap.Version)
	assert.Equal(t, int64(5), snap.Tasks[0].ID)
	assertNothingPending(t, sub)
}

func TestFeed_VersionsNeverGoBackwards(t *testing.T) {
	f := New(zap.NewNop())
	sub := f.Subscribe()
	defer sub.Close()

	const publishes = 200
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < publishes; i++ {
			f.Publish(nil)
		}
	}()

	var last uint64
	for last < publishes {
		snap := receive(t, sub)
		assert.Greater(t, snap.Version, last)
		last = snap.Version
	}
	<-done
}

func TestFeed_Unsubscribe(t *testing.T) {
	f := New(zap.NewNop())
	sub := f.Subscribe()
	other := f.Subscribe()
	defer other.Close()
	assert.Equal(t, 2, f.Len())

	f.Unsubscribe(sub)
	assert.Equal(t, 1, f.Len())

	_, ok := <-sub.C()
	assert.False(t, ok, "channel closed after unsubscribe")

	// double unsubscribe is a no-op
	assert.NotPanics(t, func() {
		f.Unsubscribe(sub)
		sub.Close()
		f.Unsubscribe(nil)
	})
	assert.Equal(t, 1, f.Len())

	f.Publish(nil)
	snap := receive(t, other)
	assert.Equal(t, uint64(1), snap.Version)
}

func TestFeed_SnapshotsAreCopies(t *testing.T) {
	f := New(zap.NewNop())
	tasks := []model.Task{{ID: 1, Title: "original"}}

	a := f.Subscribe()
	b := f.Subscribe()
	defer a.Close()
	defer b.Close()

	f.Publish(tasks)
	tasks[0].Title = "mutated by publisher"

	snapA := receive(t, a)
	snapA.Tasks[0].Title = "mutated by a"

	snapB := receive(t, b)
	assert.Equal(t, "original", snapB.Tasks[0].Title)

	latest, ok := f.Latest()
	require.True(t, ok)
	assert.Equal(t, "original", latest.Tasks[0].Title)
}

func TestFeed_LatestBeforePublish(t *testing.T) {
	f := New(zap.NewNop())
	_, ok := f.Latest()
	assert.False(t, ok)

	snap := f.Publish(nil)
	assert.NotNil(t, snap.Tasks)
	assert.Empty(t, snap.Tasks)
}

func TestFeed_Close(t *testing.T) {
	f := New(zap.NewNop())
	subs := []*Subscription{f.Subscribe(), f.Subscribe()}
	f.Close()
	assert.Equal(t, 0, f.Len())

	for _, sub := range subs {
		_, ok := <-sub.C()
		assert.False(t, ok)
		assert.NotPanics(t, sub.Close)
	}
}

func TestFeed_ConcurrentSubscribers(t *testing.T) {
	f := New(zap.NewNop())
	f.Publish(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := f.Subscribe()
			defer sub.Close()
			snap := receive(t, sub)
			assert.GreaterOrEqual(t, snap.Version, uint64(1))
		}()
	}
	for i := 0; i < 20; i++ {
		f.Publish(nil)
	}
	wg.Wait()
	assert.Equal(t, 0, f.Len())
}
