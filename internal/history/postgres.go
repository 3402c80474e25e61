package history

import (
	"context"
	"fmt"

	"playground/internal/infra"
	"playground/internal/sqlinline"
)

// Postgres stores the log in a single table ordered by a sequence, so a
// re-pushed id moves to the front.
type Postgres[T Record] struct {
	db       infra.SQLExecutor
	capacity int
}

func NewPostgres[T Record](db infra.SQLExecutor, capacity int) *Postgres[T] {
	return &Postgres[T]{db: db, capacity: normalizeCapacity(capacity)}
}

// EnsureSchema creates the sequence and table when missing.
func (p *Postgres[T]) EnsureSchema(ctx context.Context) error {
	for _, q := range []string{sqlinline.QEnsureHistorySequence, sqlinline.QEnsureHistoryTable} {
		if _, err := p.db.Exec(ctx, q); err != nil {
			return fmt.Errorf("history: ensure schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres[T]) Push(ctx context.Context, item T) error {
	id := item.RecordID()
	if id == "" {
		return ErrMissingID
	}
	payload, err := encode(item)
	if err != nil {
		return err
	}
	push := func(db infra.SQLExecutor) error {
		if _, err := db.Exec(ctx, sqlinline.QLockHistory); err != nil {
			return fmt.Errorf("history: lock: %w", err)
		}
		if _, err := db.Exec(ctx, sqlinline.QUpsertHistoryItem, id, string(payload)); err != nil {
			return fmt.Errorf("history: insert: %w", err)
		}
		if _, err := db.Exec(ctx, sqlinline.QTrimHistory, p.capacity); err != nil {
			return fmt.Errorf("history: trim: %w", err)
		}
		return nil
	}
	tx, ok := p.db.(infra.TxRunner)
	if !ok {
		return fmt.Errorf("history: postgres executor %T does not support transactions", p.db)
	}
	return tx.InTx(ctx, push)
}

func (p *Postgres[T]) List(ctx context.Context) ([]T, error) {
	rows, err := p.db.Query(ctx, sqlinline.QListHistory, p.capacity)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	items := make([]T, 0, p.capacity)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		item, err := decode[T](payload)
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

func (p *Postgres[T]) Delete(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, sqlinline.QDeleteHistoryItem, id)
	if err != nil {
		return fmt.Errorf("history: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func (p *Postgres[T]) Clear(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, sqlinline.QClearHistory); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	return nil
}

func (p *Postgres[T]) Capacity() int { return p.capacity }
