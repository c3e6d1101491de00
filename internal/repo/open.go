package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Open connects to the backend named by driver and migrates its schema.
func Open(ctx context.Context, driver, dsn string) (TaskRepository, error) {
	var (
		r   TaskRepository
		err error
	)

	switch driver {
	case DriverSQLite, "":
		r, err = OpenSQLite(dsn)
	case DriverPostgres:
		r, err = openPostgres(ctx, dsn)
	case DriverMySQL:
		r, err = OpenMySQL(dsn)
	default:
		return nil, fmt.Errorf("unknown db driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := r.Migrate(ctx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func openPostgres(ctx context.Context, dsn string) (*TaskRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, storageErr("connect postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storageErr("ping postgres", err)
	}
	return NewTaskRepo(pool), nil
}
