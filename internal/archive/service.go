// Package archive — доменный сервис архивирования: пересылка контента в
// архивный канал, выпуск короткого кода, персист записи и выдача публичной
// ссылки. Сервис не знает про Telegram-апдейты и HTTP: транспорт подключается
// через интерфейсы Forwarder/Messenger/Notifier, внешний сокращатель — через
// shortener.Shortener.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"telegram-archivebot/internal/admins"
	"telegram-archivebot/internal/infra/logger"
	"telegram-archivebot/internal/shortener"
	"telegram-archivebot/internal/store"
)

var (
	// ErrUnauthorized — операцию вызвал не-администратор.
	ErrUnauthorized = errors.New("archive: operator is not an admin")
	// ErrInvalidRange — границы диапазона не удовлетворяют first < last.
	ErrInvalidRange = errors.New("archive: first message ID must be less than last")
)

// codeAttempts ограничивает повторы генерации кода при коллизии.
// Вероятность одной коллизии на 36^6 значений ничтожна; пять подряд —
// признак неисправности хранилища, а не невезения.
const codeAttempts = 5

// Forwarder пересылает сообщение в архивный канал и возвращает ID пересланного
// сообщения в нём. Вызов сетевой и может сбоить транзиентно.
type Forwarder interface {
	Forward(ctx context.Context, dstChat, srcChat int64, messageID int) (int, error)
}

// Messenger отправляет текстовое сообщение получателю. Используется broadcast-ом.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Notifier пишет событие в операционный лог-канал. Best-effort по контракту.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Item — запись с актуальной (свежесокращённой) публичной ссылкой.
type Item struct {
	Record store.ContentRecord
	Link   string
}

// Service реализует операции архивирования поверх инжектированных зависимостей.
type Service struct {
	store     store.Store
	admins    *admins.List
	forwarder Forwarder
	messenger Messenger
	notifier  Notifier
	shorten   shortener.Shortener

	archiveChannel int64
	domain         string
	clock          func() time.Time
}

// Options — зависимости сервиса. Clock необязателен (по умолчанию time.Now).
type Options struct {
	Store          store.Store
	Admins         *admins.List
	Forwarder      Forwarder
	Messenger      Messenger
	Notifier       Notifier
	Shortener      shortener.Shortener
	ArchiveChannel int64
	Domain         string
	Clock          func() time.Time
}

// New собирает сервис. Все зависимости, кроме Clock, обязательны.
func New(opts Options) (*Service, error) {
	if opts.Store == nil || opts.Admins == nil || opts.Forwarder == nil ||
		opts.Messenger == nil || opts.Notifier == nil || opts.Shortener == nil {
		return nil, errors.New("archive: missing required dependency")
	}
	if opts.ArchiveChannel == 0 {
		return nil, errors.New("archive: archive channel is not set")
	}
	if opts.Domain == "" {
		return nil, errors.New("archive: public domain is not set")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:          opts.Store,
		admins:         opts.Admins,
		forwarder:      opts.Forwarder,
		messenger:      opts.Messenger,
		notifier:       opts.Notifier,
		shorten:        opts.Shortener,
		archiveChannel: opts.ArchiveChannel,
		domain:         opts.Domain,
		clock:          clock,
	}, nil
}

// ArchiveSingle пересылает одно сообщение оператора в архивный канал, выпускает
// код и возвращает публичную ссылку (по возможности сокращённую).
//
// Порядок side-эффектов: forward → insert → notify. Сбой форварда или вставки
// прерывает операцию без записи; сбой сокращателя невидим (identity fallback);
// сбой уведомления лог-канала проглатывается.
func (s *Service) ArchiveSingle(ctx context.Context, operatorID, srcChat int64, messageID int) (string, error) {
	if !s.admins.Contains(operatorID) {
		return "", ErrUnauthorized
	}

	archivedID, err := s.forwarder.Forward(ctx, s.archiveChannel, srcChat, messageID)
	if err != nil {
		return "", errors.Wrap(err, "forward to archive channel")
	}

	rec := store.ContentRecord{
		Kind:       store.KindSingle,
		MessageID:  archivedID,
		UploaderID: operatorID,
		CreatedAt:  s.clock(),
	}
	code, err := s.insertWithFreshCode(ctx, rec)
	if err != nil {
		return "", err
	}

	link := s.shareLink(ctx, code)
	s.notifier.Notify(ctx, fmt.Sprintf("Content uploaded by %d: %s", operatorID, code))
	return link, nil
}

// ArchiveBatch архивирует непрерывный диапазон [firstID, lastID] сообщений
// исходного чата под одним кодом. Каждый неудачный форвард пропускается, не
// прерывая остальных; запись с полными границами вставляется независимо от
// числа фактически пересланных сообщений.
func (s *Service) ArchiveBatch(ctx context.Context, operatorID, srcChat int64, firstID, lastID int) (string, error) {
	if !s.admins.Contains(operatorID) {
		return "", ErrUnauthorized
	}
	if firstID >= lastID {
		return "", ErrInvalidRange
	}

	skipped := 0
	for msgID := firstID; msgID <= lastID; msgID++ {
		if _, err := s.forwarder.Forward(ctx, s.archiveChannel, srcChat, msgID); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			logger.Warn("batch forward skipped",
				zap.Int("message_id", msgID), zap.Error(err))
			skipped++
		}
	}

	rec := store.ContentRecord{
		Kind:       store.KindBatch,
		FirstID:    firstID,
		LastID:     lastID,
		UploaderID: operatorID,
		CreatedAt:  s.clock(),
	}
	code, err := s.insertWithFreshCode(ctx, rec)
	if err != nil {
		return "", err
	}

	link := s.shareLink(ctx, code)
	s.notifier.Notify(ctx, fmt.Sprintf("Batch uploaded by %d: %s (messages %d-%d, %d skipped)",
		operatorID, code, firstID, lastID, skipped))
	return link, nil
}

// ListContent возвращает все записи, каждая — со свежесокращённой ссылкой.
// Кэширования нет намеренно: короткие ссылки внешнего провайдера могут
// протухать, а повторное сокращение дёшево.
func (s *Service) ListContent(ctx context.Context, operatorID int64) ([]Item, error) {
	if !s.admins.Contains(operatorID) {
		return nil, ErrUnauthorized
	}

	records, err := s.store.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list records")
	}
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		items = append(items, Item{
			Record: rec,
			Link:   s.shareLink(ctx, rec.Code),
		})
	}
	return items, nil
}

// Broadcast рассылает текст всем уникальным загрузчикам. Сбой доставки
// конкретному получателю пропускается; гарантий по числу доставленных нет.
// Возвращает число получателей, которым рассылка была адресована.
func (s *Service) Broadcast(ctx context.Context, operatorID int64, text string) (int, error) {
	if !s.admins.Contains(operatorID) {
		return 0, ErrUnauthorized
	}

	uploaders, err := s.store.Uploaders(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "list uploaders")
	}
	for _, id := range uploaders {
		if err := s.messenger.SendMessage(ctx, id, text); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}
			logger.Warn("broadcast delivery skipped",
				zap.Int64("recipient", id), zap.Error(err))
		}
	}
	s.notifier.Notify(ctx, fmt.Sprintf("Broadcast sent by %d to %d recipients", operatorID, len(uploaders)))
	return len(uploaders), nil
}

// insertWithFreshCode генерирует код и вставляет запись, повторяя генерацию
// при ErrCodeExists до codeAttempts раз. Явное решение открытого вопроса
// исходного поведения: молчаливые коллизии не принимаются.
func (s *Service) insertWithFreshCode(ctx context.Context, rec store.ContentRecord) (string, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := store.GenerateCode()
		if err != nil {
			return "", errors.Wrap(err, "generate code")
		}
		rec.Code = code
		err = s.store.Insert(ctx, rec)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, store.ErrCodeExists) {
			return "", errors.Wrap(err, "insert record")
		}
		logger.Warn("shortlink code collision, regenerating", zap.String("code", code))
	}
	return "", errors.Errorf("no unique code after %d attempts", codeAttempts)
}

// shareLink строит каноническую публичную ссылку {domain}/{code} и прогоняет
// её через сокращатель (best-effort).
func (s *Service) shareLink(ctx context.Context, code string) string {
	return s.shorten.Shorten(ctx, fmt.Sprintf("%s/%s", s.domain, code))
}
