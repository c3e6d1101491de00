package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasklist/internal/feed"
	"github.com/BuzzLyutic/tasklist/internal/model"
	"github.com/BuzzLyutic/tasklist/internal/repo"
	"github.com/BuzzLyutic/tasklist/internal/worker"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

var (
	ErrValidation = errors.New("validation error")
)

// ValidationError names the rejected field and why it was rejected.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type Stats struct {
	TotalTasks  int         `json:"total_tasks"`
	WithDueDate int         `json:"with_due_date"`
	Overdue     int         `json:"overdue"`
	Undated     int         `json:"undated"`
	NextDue     *model.Task `json:"next_due,omitempty"`
}

type Option func(*TaskService)

// WithClock replaces the time source used for due date validation.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

// TaskService owns all task mutations. Writes are serialized through a
// single worker queue; after each commit the full ordered list is published
// to the feed from that same worker, so snapshots follow commit order.
type TaskService struct {
	repo   repo.TaskRepository
	feed   *feed.Feed
	queue  *worker.Queue
	logger *zap.Logger
	now    func() time.Time
}

func NewTaskService(r repo.TaskRepository, f *feed.Feed, q *worker.Queue, logger *zap.Logger, opts ...Option) *TaskService {
	s := &TaskService{
		repo:   r,
		feed:   f,
		queue:  q,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the mutation worker and publishes the initial snapshot.
func (s *TaskService) Start(ctx context.Context) error {
	s.queue.Start(ctx)
	return s.queue.Submit(ctx, func(ctx context.Context) error {
		return s.publish(ctx)
	})
}

// Stop finishes queued mutations and disconnects every feed subscriber.
func (s *TaskService) Stop() {
	s.queue.Stop()
	s.feed.Close()
}

func (s *TaskService) Create(ctx context.Context, in model.TaskInput) (model.Task, error) {
	t, err := s.prepare(in)
	if err != nil { // Валидация до постановки в очередь
		return model.Task{}, err
	}

	var created model.Task
	err = s.mutate(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.repo.Create(ctx, t)
		return err
	})
	if err != nil {
		return model.Task{}, err
	}

	s.logger.Info("task created", zap.Int64("task_id", created.ID))
	return created, nil
}

func (s *TaskService) Get(ctx context.Context, id int64) (model.Task, error) {
	return s.repo.Get(ctx, id)
}

func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	return s.repo.List(ctx)
}

// Update replaces every field of task id except the id itself.
func (s *TaskService) Update(ctx context.Context, id int64, in model.TaskInput) (model.Task, error) {
	t, err := s.prepare(in)
	if err != nil {
		return model.Task{}, err
	}
	t.ID = id

	var updated model.Task
	err = s.mutate(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.repo.Update(ctx, t)
		return err
	})
	if err != nil {
		return model.Task{}, err
	}

	s.logger.Info("task updated", zap.Int64("task_id", id))
	return updated, nil
}

// Delete removes task id. Deleting a missing task, including one that was
// just deleted, fails with *repo.NotFoundError.
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	err := s.mutate(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("task deleted", zap.Int64("task_id", id))
	return nil
}

func (s *TaskService) Stats(ctx context.Context) (Stats, error) {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return Stats{}, err
	}

	now := s.clock()
	stats := Stats{TotalTasks: len(tasks)}
	for i := range tasks {
		if !tasks[i].HasDueDate() {
			stats.Undated++
			continue
		}
		stats.WithDueDate++
		if tasks[i].DueDate.Before(now) {
			stats.Overdue++
		} else if stats.NextDue == nil {
			next := tasks[i]
			stats.NextDue = &next
		}
	}
	return stats, nil
}

func (s *TaskService) Subscribe() *feed.Subscription {
	return s.feed.Subscribe()
}

func (s *TaskService) Unsubscribe(sub *feed.Subscription) {
	s.feed.Unsubscribe(sub)
}

// mutate runs fn on the queue and publishes a fresh snapshot once it commits.
func (s *TaskService) mutate(ctx context.Context, fn worker.Job) error {
	return s.queue.Submit(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		// the write is committed; a cancelled caller must not stall the feed
		if err := s.publish(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error("failed to publish snapshot", zap.Error(err))
		}
		return nil
	})
}

func (s *TaskService) publish(ctx context.Context) error {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	snap := s.feed.Publish(tasks)
	s.logger.Debug("snapshot published",
		zap.Uint64("version", snap.Version),
		zap.Int("tasks", len(snap.Tasks)),
	)
	return nil
}

func (s *TaskService) prepare(in model.TaskInput) (model.Task, error) {
	t := model.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		DueDate:     in.DueDate,
	}
	if t.HasDueDate() {
		t.DueDate = t.DueDate.UTC().Truncate(time.Millisecond)
	}
	return t, s.validate(t)
}

func (s *TaskService) validate(t model.Task) error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", MaxTitleLength)}
	}
	if utf8.RuneCountInString(strings.TrimSpace(t.Description)) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Reason: fmt.Sprintf("must be at most %d characters", MaxDescriptionLength)}
	}
	if t.HasDueDate() {
		if model.DueDateMillis(t.DueDate) <= 0 {
			return &ValidationError{Field: "dueDate", Reason: "must be after the epoch"}
		}
		if t.DueDate.Before(s.clock().Truncate(time.Millisecond)) {
			return &ValidationError{Field: "dueDate", Reason: "must not be in the past"}
		}
	}
	return nil
}

func (s *TaskService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
