package postgres

import (
	"context"
	"database/sql"
	"time"

	"sadaka/pkg/config"
	"sadaka/pkg/errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Connect opens the pool and applies the configured limits.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// isUniqueViolation reports a 23505 error, optionally on a named constraint.
func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// notFound maps sql.ErrNoRows to the domain error and wraps anything else.
func notFound(err error, missing error, op string) error {
	if err == sql.ErrNoRows {
		return missing
	}
	return errors.Persistence(err, op)
}

func affected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Persistence(err, op)
	}
	return n > 0, nil
}
