package feed

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasklist/internal/model"
)

// Feed fans out full task-list snapshots to subscribers.
//
// Every subscriber holds at most one undelivered snapshot. A newer snapshot
// replaces an undelivered older one, so a slow reader skips intermediate
// states but always ends up with the latest, and Publish never blocks on it.
type Feed struct {
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	subs    map[uuid.UUID]*Subscription
	latest  model.Snapshot
	version uint64
}

type Subscription struct {
	ID uuid.UUID

	feed *Feed
	ch   chan model.Snapshot
}

func New(logger *zap.Logger) *Feed {
	return &Feed{
		logger: logger,
		now:    time.Now,
		subs:   make(map[uuid.UUID]*Subscription),
	}
}

// Publish stamps tasks with the next version and delivers the snapshot to
// every subscriber. Callers must publish in commit order.
func (f *Feed) Publish(tasks []model.Task) model.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.version++
	f.latest = model.Snapshot{
		Version: f.version,
		Tasks:   slices.Clone(tasks),
		TakenAt: f.now().UTC(),
	}
	if f.latest.Tasks == nil {
		f.latest.Tasks = []model.Task{}
	}

	for _, sub := range f.subs {
		sub.offer(f.latest)
	}
	return copySnapshot(f.latest)
}

// Subscribe registers a new subscriber. If anything has been published, the
// latest snapshot is already waiting on the returned channel.
func (f *Feed) Subscribe() *Subscription {
	sub := &Subscription{
		ID:   uuid.New(),
		feed: f,
		ch:   make(chan model.Snapshot, 1),
	}

	f.mu.Lock()
	f.subs[sub.ID] = sub
	if f.version > 0 {
		sub.offer(f.latest)
	}
	n := len(f.subs)
	f.mu.Unlock()

	f.logger.Debug("feed subscriber added",
		zap.String("subscription", sub.ID.String()),
		zap.Int("subscribers", n),
	)
	return sub
}

// Unsubscribe stops delivery and closes the subscription channel. Unknown or
// already removed subscriptions are ignored.
func (f *Feed) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	f.mu.Lock()
	if _, ok := f.subs[sub.ID]; !ok {
		f.mu.Unlock()
		return
	}
	delete(f.subs, sub.ID)
	close(sub.ch)
	n := len(f.subs)
	f.mu.Unlock()

	f.logger.Debug("feed subscriber removed",
		zap.String("subscription", sub.ID.String()),
		zap.Int("subscribers", n),
	)
}

// Latest returns the most recently published snapshot.
func (f *Feed) Latest() (model.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.version == 0 {
		return model.Snapshot{}, false
	}
	return copySnapshot(f.latest), true
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close removes every subscriber.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, sub := range f.subs {
		delete(f.subs, id)
		close(sub.ch)
	}
}

// C delivers snapshots. It is closed on unsubscribe.
func (s *Subscription) C() <-chan model.Snapshot {
	return s.ch
}

func (s *Subscription) Close() {
	s.feed.Unsubscribe(s)
}

// offer must be called with the feed lock held. The lock makes the feed the
// only sender, so after dropping a stale value the send cannot block.
func (s *Subscription) offer(snap model.Snapshot) {
	select {
	case <-s.ch:
	default:
	}
	s.ch <- copySnapshot(snap)
}

func copySnapshot(s model.Snapshot) model.Snapshot {
	s.Tasks = slices.Clone(s.Tasks)
	return s
}
