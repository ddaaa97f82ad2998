// Package store — модель данных и контракт хранилища коротких кодов.
// ContentRecord связывает публичный код с местоположением заархивированного
// контента: либо одно сообщение архивного канала, либо непрерывный диапазон
// message ID. Записи неизменяемы после вставки; операции удаления нет —
// записи живут до конца жизни хранилища.
package store

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Kind — тип записи: одно сообщение или диапазон.
type Kind string

const (
	// KindSingle — запись на одно заархивированное сообщение.
	KindSingle Kind = "single"
	// KindBatch — запись на непрерывный диапазон сообщений [FirstID, LastID].
	KindBatch Kind = "batch"
)

var (
	// ErrNotFound возвращается при отсутствии записи с запрошенным кодом.
	ErrNotFound = errors.New("store: record not found")
	// ErrCodeExists возвращается при попытке вставить запись с уже занятым кодом.
	// Вызывающий обязан сгенерировать новый код и повторить вставку.
	ErrCodeExists = errors.New("store: code already exists")
)

// ContentRecord — единица персистентности: код → местоположение контента.
// Для KindSingle заполнено MessageID; для KindBatch — FirstID/LastID
// (инвариант FirstID < LastID проверяется до вставки, на уровне сервиса).
type ContentRecord struct {
	Code       string    `json:"code" bson:"shortlink"`
	Kind       Kind      `json:"kind" bson:"kind"`
	MessageID  int       `json:"message_id,omitempty" bson:"message_id,omitempty"`
	FirstID    int       `json:"first_id,omitempty" bson:"batch_first_id,omitempty"`
	LastID     int       `json:"last_id,omitempty" bson:"batch_last_id,omitempty"`
	UploaderID int64     `json:"uploader_id" bson:"uploader_id"`
	CreatedAt  time.Time `json:"created_at" bson:"upload_time"`
}

// Store — контракт хранилища записей. Реализации обязаны выдерживать
// конкурентные чтения resolver-а поверх конкурентных вставок бота; кросс-записных
// транзакций не требуется, так как записи неизменяемы и ключуются одним кодом.
type Store interface {
	// Insert сохраняет новую запись. Возвращает ErrCodeExists, если код занят.
	Insert(ctx context.Context, rec ContentRecord) error
	// Get возвращает запись по коду или ErrNotFound.
	Get(ctx context.Context, code string) (ContentRecord, error)
	// List возвращает все записи в порядке возрастания кода.
	List(ctx context.Context) ([]ContentRecord, error)
	// Uploaders возвращает множество уникальных UploaderID по всем записям.
	Uploaders(ctx context.Context) ([]int64, error)
	// Close освобождает ресурсы бэкенда.
	Close() error
}
