package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore はPostgresをバックエンドとするStore実装です。
// レコードは単一のKVテーブルにJSONBとしてupsertされます。
type PostgresStore struct {
	pool *pgxpool.Pool
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS generation_tasks (
	task_id    TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgresStore は接続URLからPostgresStoreを作成し、テーブルを初期化します。
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close はコネクションプールをクローズします
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Save はStoreインターフェースを実装します
func (s *PostgresStore) Save(ctx context.Context, id string, rec Record) error {
	rec.TaskID = id
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO generation_tasks (task_id, record, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (task_id) DO UPDATE SET record = EXCLUDED.record, updated_at = now()`,
		id, data)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Get はStoreインターフェースを実装します
func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM generation_tasks WHERE task_id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("failed to get record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

// List はStoreインターフェースを実装します
func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM generation_tasks ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// Delete はStoreインターフェースを実装します
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM generation_tasks WHERE task_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}
