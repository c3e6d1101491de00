package repo

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			title VARCHAR(100) NOT NULL,
			description VARCHAR(500) NOT NULL DEFAULT '',
			due_date BIGINT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			INDEX idx_tasks_due_date (due_date)
		) DEFAULT CHARSET = utf8mb4`,
	},
}

// OpenMySQL connects using a go-sql-driver DSN, e.g.
// "user:pass@tcp(127.0.0.1:3306)/tasks".
func OpenMySQL(dsn string) (*SQLRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, storageErr("open mysql", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageErr("ping mysql", err)
	}
	return newSQLRepo(db, mysqlDialect), nil
}
