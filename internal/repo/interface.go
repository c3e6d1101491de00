package repo

import (
	"context"

	"github.com/BuzzLyutic/tasklist/internal/model"
)

// TaskRepository is the durable store of tasks.
// List always returns tasks ordered by due date ascending, tasks without a
// due date last, ties broken by id.
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id int64) (model.Task, error)
	List(ctx context.Context) ([]model.Task, error)
	Update(ctx context.Context, t model.Task) (model.Task, error)
	Delete(ctx context.Context, id int64) error
	Migrate(ctx context.Context) error
	Close() error
}
