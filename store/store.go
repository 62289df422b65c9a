// Package store persists Monte Carlo measurement series in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	tableRuns         = "runs"
	tableMeasurements = "measurements"
)

// DB records named observables measured along a Markov chain, keyed by
// run ID and sweep number.
type DB struct {
	db *sql.DB
}

func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}
	return &DB{db: db}, nil
}

func (s *DB) Close() error {
	return s.db.Close()
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, l INTEGER, t INTEGER, beta REAL, u0 REAL, action TEXT, method TEXT, createdAt TEXT) STRICT`, tableRuns)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (run TEXT, sweep INTEGER, name TEXT, value REAL, PRIMARY KEY (run, sweep, name)) STRICT`, tableMeasurements)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Run describes one Markov chain.
type Run struct {
	L      int
	T      int
	Beta   float64
	U0     float64
	Action string
	Method string
}

// NewRun registers a run and returns its ID.
func (s *DB) NewRun(r Run) (string, error) {
	id := uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`INSERT INTO %s (id, l, t, beta, u0, action, method, createdAt) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, tableRuns)
	createdAt := time.Now().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, sqlStr, id, r.L, r.T, r.Beta, r.U0, r.Action, r.Method, createdAt); err != nil {
		return "", errors.Wrap(err, "")
	}
	return id, nil
}

// Add records one observable value at the given sweep.
func (s *DB) Add(runID string, sweep int, name string, value float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`INSERT INTO %s (run, sweep, name, value) VALUES (?, ?, ?, ?)`, tableMeasurements)
	if _, err := s.db.ExecContext(ctx, sqlStr, runID, sweep, name, value); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Values returns the series of an observable in sweep order.
func (s *DB) Values(runID, name string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT value FROM %s WHERE run = ? AND name = ? ORDER BY sweep`, tableMeasurements)
	rows, err := s.db.QueryContext(ctx, sqlStr, runID, name)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	vs := make([]float64, 0)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "")
		}
		vs = append(vs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return vs, nil
}
