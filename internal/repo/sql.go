package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/BuzzLyutic/tasklist/internal/model"
)

type dialect struct {
	name   string
	schema []string
}

// SQLRepo stores tasks through database/sql. SQLite and MySQL share it; only
// the schema differs between them.
type SQLRepo struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func newSQLRepo(db *sql.DB, d dialect) *SQLRepo {
	return &SQLRepo{
		db:      db,
		dialect: d,
		now:     time.Now,
	}
}

const selectTask = `SELECT id, title, description, due_date, created_at, updated_at FROM tasks`

func (r *SQLRepo) Migrate(ctx context.Context) error {
	for _, ddl := range r.dialect.schema {
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return storageErr(r.dialect.name+" migrate", err)
		}
	}
	return nil
}

func (r *SQLRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	now := r.now().UTC().Truncate(time.Millisecond)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (title, description, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, t.Title, t.Description, nullMillis(t.DueDate), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return t, storageErr("create", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return t, storageErr("create", err)
	}

	t.ID = id
	t.DueDate = model.DueDateFromMillis(model.DueDateMillis(t.DueDate))
	t.CreatedAt = now
	t.UpdatedAt = now
	return t, nil
}

func (r *SQLRepo) Get(ctx context.Context, id int64) (model.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, selectTask+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, &NotFoundError{ID: id}
	}
	return t, storageErr("get", err)
}

func (r *SQLRepo) List(ctx context.Context) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, selectTask+` ORDER BY due_date IS NULL, due_date ASC, id ASC`)
	if err != nil {
		return nil, storageErr("list", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, storageErr("list", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, storageErr("list", rows.Err())
}

// Update replaces every field except id and created_at inside one
// transaction, so a concurrent reader sees either the old or the new row.
func (r *SQLRepo) Update(ctx context.Context, t model.Task) (model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return t, storageErr("update", err)
	}
	defer tx.Rollback()

	var createdAt int64
	err = tx.QueryRowContext(ctx, `SELECT created_at FROM tasks WHERE id = ?`, t.ID).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, &NotFoundError{ID: t.ID}
	}
	if err != nil {
		return t, storageErr("update", err)
	}

	now := r.now().UTC().Truncate(time.Millisecond)
	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, due_date = ?, updated_at = ?
		WHERE id = ?
	`, t.Title, t.Description, nullMillis(t.DueDate), now.UnixMilli(), t.ID); err != nil {
		return t, storageErr("update", err)
	}

	if err := tx.Commit(); err != nil {
		return t, storageErr("update", err)
	}

	t.DueDate = model.DueDateFromMillis(model.DueDateMillis(t.DueDate))
	t.CreatedAt = time.UnixMilli(createdAt).UTC()
	t.UpdatedAt = now
	return t, nil
}

func (r *SQLRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete", err)
	}
	if n == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

func (r *SQLRepo) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var (
		t                    model.Task
		due                  sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &due, &createdAt, &updatedAt); err != nil {
		return t, err
	}
	if due.Valid {
		t.DueDate = model.DueDateFromMillis(due.Int64)
	}
	t.CreatedAt = time.UnixMilli(createdAt).UTC()
	t.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return t, nil
}

func nullMillis(t time.Time) sql.NullInt64 {
	ms := model.DueDateMillis(t)
	return sql.NullInt64{Int64: ms, Valid: ms > 0}
}
