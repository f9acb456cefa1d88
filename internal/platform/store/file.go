package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore はローカルJSONファイルを使うStore実装です。
// テーブル全体を単一のミューテックス配下で read-modify-write するため、
// 並行書き込みによる更新の消失や、読み手から見える部分書き込みは発生しません。
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore は指定パスのJSONファイルを使うFileStoreを作成します。
// ディレクトリが存在しない場合は作成します。
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Save はStoreインターフェースを実装します
func (s *FileStore) Save(ctx context.Context, id string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.loadLocked()
	if err != nil {
		return err
	}
	rec.TaskID = id
	table[id] = rec
	return s.writeLocked(table)
}

// Get はStoreインターフェースを実装します
func (s *FileStore) Get(ctx context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.loadLocked()
	if err != nil {
		return Record{}, err
	}
	rec, ok := table[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// List はStoreインターフェースを実装します
func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(table))
	for _, rec := range table {
		records = append(records, rec)
	}
	// mapの列挙順は不定なので、参照の安定性のためIDで整列する
	sort.Slice(records, func(i, j int) bool {
		return records[i].TaskID < records[j].TaskID
	})
	return records, nil
}

// Delete はStoreインターフェースを実装します
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.loadLocked()
	if err != nil {
		return err
	}
	if _, ok := table[id]; !ok {
		return nil
	}
	delete(table, id)
	return s.writeLocked(table)
}

// loadLocked はファイルからテーブル全体を読み込みます。呼び出し元がロックを保持すること。
func (s *FileStore) loadLocked() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Record{}, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	table := map[string]Record{}
	if len(data) == 0 {
		return table, nil
	}
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to decode store file: %w", err)
	}
	return table, nil
}

// writeLocked はテーブル全体を一時ファイルへ書き出してからrenameで置き換えます。
// 置き換えは不可分なので、途中状態のテーブルが他プロセスから見えることはありません。
func (s *FileStore) writeLocked(table map[string]Record) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to encode store table: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
