package buffer

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nordlicht/waypost/internal/domain"
	"github.com/nordlicht/waypost/internal/ports"
)

// PGBuffer keeps the pending queue in a Postgres table instead of a local
// file, for deployments where the agent host has no durable disk. FIFO order
// comes from the serial primary key.
type PGBuffer struct {
	db      *sql.DB
	table   string
	maxLen  int
	onEvict func(n int)
}

func NewPGBuffer(db *sql.DB, table string, maxLen int, onEvict func(n int)) *PGBuffer {
	return &PGBuffer{db: db, table: table, maxLen: maxLen, onEvict: onEvict}
}

// Init creates the queue table when it does not exist yet.
func (b *PGBuffer) Init() error {
	_, err := b.db.Exec(fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id BIGSERIAL PRIMARY KEY, payload JSONB NOT NULL)", b.table))
	if err != nil {
		return fmt.Errorf("queue table init: %w", err)
	}
	return nil
}

func (b *PGBuffer) Append(p domain.Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if _, err := b.db.Exec(fmt.Sprintf("INSERT INTO %s (payload) VALUES ($1)", b.table), data); err != nil {
		return fmt.Errorf("queue append: %w", err)
	}
	if b.maxLen <= 0 {
		return nil
	}

	res, err := b.db.Exec(fmt.Sprintf(
		"DELETE FROM %s WHERE id IN (SELECT id FROM %s ORDER BY id ASC LIMIT (SELECT GREATEST(COUNT(*) - $1, 0) FROM %s))",
		b.table, b.table, b.table), b.maxLen)
	if err != nil {
		return fmt.Errorf("queue evict: %w", err)
	}
	if b.onEvict != nil {
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			b.onEvict(int(n))
		}
	}
	return nil
}

func (b *PGBuffer) Drain() ([]domain.Payload, error) {
	rows, err := b.db.Query(fmt.Sprintf("SELECT payload FROM %s ORDER BY id ASC", b.table))
	if err != nil {
		return nil, fmt.Errorf("queue drain: %w", err)
	}
	defer rows.Close()

	var payloads []domain.Payload
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("queue drain scan: %w", err)
		}
		var p domain.Payload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("corrupt queue entry: %w", err)
		}
		payloads = append(payloads, p)
	}
	return payloads, rows.Err()
}

func (b *PGBuffer) RemoveDelivered(n int) error {
	if n <= 0 {
		return nil
	}
	_, err := b.db.Exec(fmt.Sprintf(
		"DELETE FROM %s WHERE id IN (SELECT id FROM %s ORDER BY id ASC LIMIT $1)", b.table, b.table), n)
	if err != nil {
		return fmt.Errorf("queue remove: %w", err)
	}
	return nil
}

func (b *PGBuffer) Clear() error {
	if _, err := b.db.Exec(fmt.Sprintf("DELETE FROM %s", b.table)); err != nil {
		return fmt.Errorf("queue clear: %w", err)
	}
	return nil
}

func (b *PGBuffer) Count() (int, error) {
	var n int
	if err := b.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", b.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("queue count: %w", err)
	}
	return n, nil
}

var _ ports.Buffer = (*PGBuffer)(nil)
