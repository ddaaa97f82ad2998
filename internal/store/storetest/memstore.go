// Package storetest — in-memory реализация store.Store для тестов сервисов,
// которым не нужен настоящий бэкенд. Потокобезопасна; порядок List — по
// возрастанию кода, как у реальных бэкендов.
package storetest

import (
	"context"
	"sort"
	"sync"

	"telegram-archivebot/internal/store"
)

// MemStore хранит записи в карте под мьютексом.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]store.ContentRecord

	// FailInsert и FailRead позволяют симулировать сбой хранилища.
	FailInsert error
	FailRead   error
}

var _ store.Store = (*MemStore)(nil)

// New возвращает пустое in-memory хранилище.
func New() *MemStore {
	return &MemStore{records: make(map[string]store.ContentRecord)}
}

// Insert сохраняет запись; повтор кода — store.ErrCodeExists.
func (m *MemStore) Insert(_ context.Context, rec store.ContentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailInsert != nil {
		return m.FailInsert
	}
	if _, ok := m.records[rec.Code]; ok {
		return store.ErrCodeExists
	}
	m.records[rec.Code] = rec
	return nil
}

// Get возвращает запись по коду или store.ErrNotFound.
func (m *MemStore) Get(_ context.Context, code string) (store.ContentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailRead != nil {
		return store.ContentRecord{}, m.FailRead
	}
	rec, ok := m.records[code]
	if !ok {
		return store.ContentRecord{}, store.ErrNotFound
	}
	return rec, nil
}

// List возвращает записи в возрастании кода.
func (m *MemStore) List(_ context.Context) ([]store.ContentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailRead != nil {
		return nil, m.FailRead
	}
	codes := make([]string, 0, len(m.records))
	for code := range m.records {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	result := make([]store.ContentRecord, 0, len(codes))
	for _, code := range codes {
		result = append(result, m.records[code])
	}
	return result, nil
}

// Uploaders возвращает уникальные UploaderID.
func (m *MemStore) Uploaders(ctx context.Context) ([]int64, error) {
	records, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(records))
	var ids []int64
	for _, rec := range records {
		if _, ok := seen[rec.UploaderID]; ok {
			continue
		}
		seen[rec.UploaderID] = struct{}{}
		ids = append(ids, rec.UploaderID)
	}
	return ids, nil
}

// Len возвращает число записей — удобно для ассертов «ничего не записано».
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close ничего не делает.
func (m *MemStore) Close() error { return nil }
