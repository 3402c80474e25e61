package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`create table if not exists playground_history (
  id      text primary key,
  seq     integer not null,
  payload text not null
);`,
	`create index if not exists playground_history_seq_idx on playground_history(seq);`,
}

const (
	sqliteUpsert = `
insert into playground_history(id, seq, payload)
values (?, (select coalesce(max(seq), 0) + 1 from playground_history), ?)
on conflict(id) do update
set payload = excluded.payload,
    seq = excluded.seq;
`
	sqliteTrim = `
delete from playground_history
where id in (
  select id from playground_history order by seq desc limit -1 offset ?
);
`
	sqliteList   = `select payload from playground_history order by seq desc limit ?;`
	sqliteDelete = `delete from playground_history where id = ?;`
	sqliteClear  = `delete from playground_history;`
)

// SQLite stores the log in a local database file.
type SQLite[T Record] struct {
	db       *sql.DB
	capacity int
}

// OpenSQLite opens (or creates) the database at path and prepares the schema.
// Use ":memory:" for a throwaway log.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: sqlite schema: %w", err)
		}
	}
	return db, nil
}

func NewSQLite[T Record](db *sql.DB, capacity int) *SQLite[T] {
	return &SQLite[T]{db: db, capacity: normalizeCapacity(capacity)}
}

func (s *SQLite[T]) Push(ctx context.Context, item T) error {
	id := item.RecordID()
	if id == "" {
		return ErrMissingID
	}
	payload, err := encode(item)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, sqliteUpsert, id, string(payload)); err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqliteTrim, s.capacity); err != nil {
		return fmt.Errorf("history: trim: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	return nil
}

func (s *SQLite[T]) List(ctx context.Context) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, sqliteList, s.capacity)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	items := make([]T, 0, s.capacity)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		item, err := decode[T]([]byte(payload))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return items, nil
}

func (s *SQLite[T]) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, sqliteDelete, id)
	if err != nil {
		return fmt.Errorf("history: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("history: delete: %w", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *SQLite[T]) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteClear); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	return nil
}

func (s *SQLite[T]) Capacity() int { return s.capacity }
