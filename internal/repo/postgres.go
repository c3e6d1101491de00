package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/tasklist/internal/model"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(100) NOT NULL,
		description VARCHAR(500) NOT NULL DEFAULT '',
		due_date BIGINT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks (due_date)`,
}

type TaskRepo struct { // PostgreSQL backend
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{
		pool: pool,
	}
}

func (r *TaskRepo) Migrate(ctx context.Context) error {
	for _, ddl := range postgresSchema {
		if _, err := r.pool.Exec(ctx, ddl); err != nil {
			return storageErr("postgres migrate", err)
		}
	}
	return nil
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, due_date)
		VALUES ($1, $2, $3)
		RETURNING id, title, description, due_date, created_at, updated_at
	`, t.Title, t.Description, dueParam(t))
	created, err := scanPgTask(row)
	return created, r.mapError("create", t.ID, err)
}

func (r *TaskRepo) Get(ctx context.Context, id int64) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, description, due_date, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`, id)
	t, err := scanPgTask(row)
	return t, r.mapError("get", id, err)
}

func (r *TaskRepo) List(ctx context.Context) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description, due_date, created_at, updated_at
		FROM tasks
		ORDER BY due_date IS NULL, due_date ASC, id ASC
	`)
	if err != nil {
		return nil, storageErr("list", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanPgTask(rows)
		if err != nil {
			return nil, storageErr("list", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, storageErr("list", rows.Err())
}

// Update is a single statement; Postgres never exposes a half-written row.
func (r *TaskRepo) Update(ctx context.Context, t model.Task) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, due_date = $4, updated_at = now()
		WHERE id = $1
		RETURNING id, title, description, due_date, created_at, updated_at
	`, t.ID, t.Title, t.Description, dueParam(t))
	updated, err := scanPgTask(row)
	return updated, r.mapError("update", t.ID, err)
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return storageErr("delete", err)
	}
	if cmd.RowsAffected() == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

func (r *TaskRepo) Close() error {
	r.pool.Close()
	return nil
}

func (r *TaskRepo) mapError(op string, id int64, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{ID: id}
	}
	return storageErr(op, err)
}

func scanPgTask(row pgx.Row) (model.Task, error) {
	var (
		t   model.Task
		due *int64
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &due, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return t, err
	}
	if due != nil {
		t.DueDate = model.DueDateFromMillis(*due)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func dueParam(t model.Task) *int64 {
	if ms := model.DueDateMillis(t.DueDate); ms > 0 {
		return &ms
	}
	return nil
}
