// Package boltstore — бэкенд хранилища записей поверх bbolt.
// Все записи лежат в одном bucket `content`, ключ — код, значение — JSON
// сериализация ContentRecord. Ключи bbolt упорядочены байтово, поэтому List
// возвращает записи в возрастании кода без дополнительной сортировки.
//
// Файл bbolt захватывается процессом эксклюзивно: при одновременном запуске
// archivebot и resolver на одном файле resolver следует открывать в режиме
// readOnly (см. OpenReadOnly) либо использовать mongo-бэкенд.
package boltstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"go.etcd.io/bbolt"

	"telegram-archivebot/internal/infra/storage"
	"telegram-archivebot/internal/shared"
	"telegram-archivebot/internal/store"
)

// contentBucket — единственный bucket с записями код → JSON(ContentRecord).
var contentBucket = []byte("content")

// dbOpenTimeout ограничивает ожидание файловой блокировки при открытии,
// чтобы процесс не завис навсегда на занятом файле.
const dbOpenTimeout = 5 * time.Second

// Store реализует store.Store поверх одного файла bbolt.
type Store struct {
	db *bbolt.DB
}

var _ store.Store = (*Store)(nil)

// Open открывает (или создаёт) файл bbolt и bucket content.
func Open(path string) (*Store, error) {
	return open(path, false)
}

// OpenReadOnly открывает существующий файл только для чтения. Используется
// resolver-ом, которому запись не нужна.
func OpenReadOnly(path string) (*Store, error) {
	return open(path, true)
}

func open(path string, readOnly bool) (*Store, error) {
	if !readOnly {
		if err := storage.EnsureDir(path); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(path, storage.DefaultFilePerm, &bbolt.Options{
		Timeout:  dbOpenTimeout,
		ReadOnly: readOnly,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open bolt store")
	}
	if !readOnly {
		if err = db.Update(func(tx *bbolt.Tx) error {
			_, errBucket := tx.CreateBucketIfNotExists(contentBucket)
			return errBucket
		}); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "create content bucket")
		}
	}
	return &Store{db: db}, nil
}

// Insert сохраняет новую запись. Код-ключ проверяется внутри той же
// write-транзакции, поэтому гонка двух вставок с одним кодом исключена.
func (s *Store) Insert(ctx context.Context, rec store.ContentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(contentBucket)
		if b == nil {
			return errors.New("content bucket missing")
		}
		if b.Get([]byte(rec.Code)) != nil {
			return store.ErrCodeExists
		}
		return b.Put([]byte(rec.Code), raw)
	})
}

// Get возвращает запись по коду или store.ErrNotFound.
func (s *Store) Get(ctx context.Context, code string) (store.ContentRecord, error) {
	var rec store.ContentRecord
	if err := ctx.Err(); err != nil {
		return rec, err
	}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(contentBucket)
		if b == nil {
			return store.ErrNotFound
		}
		raw := b.Get([]byte(code))
		if raw == nil {
			return store.ErrNotFound
		}
		return json.Unmarshal(raw, &rec)
	})
	return rec, err
}

// List возвращает все записи в байтовом порядке ключей (возрастание кода).
func (s *Store) List(ctx context.Context) ([]store.ContentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var result []store.ContentRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(contentBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, raw []byte) error {
			var rec store.ContentRecord
			if errJSON := json.Unmarshal(raw, &rec); errJSON != nil {
				return errors.Wrap(errJSON, "decode record")
			}
			result = append(result, rec)
			return nil
		})
	})
	return result, err
}

// Uploaders возвращает уникальные UploaderID по всем записям.
func (s *Store) Uploaders(ctx context.Context) ([]int64, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.UploaderID)
	}
	return shared.Unique(ids), nil
}

// Close закрывает файл bbolt.
func (s *Store) Close() error {
	return s.db.Close()
}
