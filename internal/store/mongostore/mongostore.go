// Package mongostore — бэкенд хранилища записей поверх MongoDB.
// Коллекция `content` с уникальным индексом по полю shortlink; дубликат кода
// при вставке транслируется в store.ErrCodeExists. В отличие от bolt-бэкенда,
// mongo допускает одновременную работу archivebot и resolver на одной базе.
package mongostore

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telegram-archivebot/internal/store"
)

// collectionName — единственная коллекция с записями контента.
const collectionName = "content"

// connectTimeout ограничивает установку соединения и построение индекса при старте.
const connectTimeout = 10 * time.Second

// Store реализует store.Store поверх коллекции MongoDB.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Open подключается к MongoDB, проверяет доступность и создаёт уникальный
// индекс по shortlink. Индекс и обеспечивает инвариант уникальности кода.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping mongo")
	}

	coll := client.Database(database).Collection(collectionName)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "shortlink", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "create shortlink index")
	}

	return &Store{client: client, coll: coll}, nil
}

// Insert сохраняет новую запись; дубликат ключа по уникальному индексу
// транслируется в store.ErrCodeExists.
func (s *Store) Insert(ctx context.Context, rec store.ContentRecord) error {
	_, err := s.coll.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrCodeExists
	}
	if err != nil {
		return errors.Wrap(err, "insert record")
	}
	return nil
}

// Get возвращает запись по коду или store.ErrNotFound.
func (s *Store) Get(ctx context.Context, code string) (store.ContentRecord, error) {
	var rec store.ContentRecord
	err := s.coll.FindOne(ctx, bson.M{"shortlink": code}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rec, store.ErrNotFound
	}
	if err != nil {
		return rec, errors.Wrap(err, "find record")
	}
	return rec, nil
}

// List возвращает все записи, отсортированные по коду.
func (s *Store) List(ctx context.Context) ([]store.ContentRecord, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "shortlink", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list records")
	}
	var result []store.ContentRecord
	if err = cur.All(ctx, &result); err != nil {
		return nil, errors.Wrap(err, "decode records")
	}
	return result, nil
}

// Uploaders возвращает уникальные UploaderID через Distinct.
func (s *Store) Uploaders(ctx context.Context) ([]int64, error) {
	values, err := s.coll.Distinct(ctx, "uploader_id", bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "distinct uploaders")
	}
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		switch id := v.(type) {
		case int64:
			ids = append(ids, id)
		case int32:
			ids = append(ids, int64(id))
		}
	}
	return ids, nil
}

// Close разрывает соединение с MongoDB.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
