package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const createUserHolidays = `CREATE TABLE IF NOT EXISTS user_holidays (
	position INTEGER PRIMARY KEY,
	date     TEXT NOT NULL,
	label    TEXT NOT NULL DEFAULT ''
)`

// SQLite keeps the list in the user_holidays table, one row per entry in
// list order.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	// Single connection so ":memory:" databases are shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createUserHolidays); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to create table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context) ([]Holiday, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, label FROM user_holidays ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("store: query user_holidays: %w", err)
	}
	defer rows.Close()

	var list []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.Date, &h.Label); err != nil {
			return nil, fmt.Errorf("store: scan user_holidays: %w", err)
		}
		list = append(list, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sanitize("sqlite", list), nil
}

func (s *SQLite) Save(ctx context.Context, list []Holiday) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_holidays`); err != nil {
		return fmt.Errorf("store: clear user_holidays: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO user_holidays (position, date, label) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, h := range list {
		if _, err := stmt.ExecContext(ctx, i, h.Date, h.Label); err != nil {
			return fmt.Errorf("store: insert holiday %s: %w", h.Date, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
