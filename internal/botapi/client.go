// Package botapi — транспорт Telegram Bot API для archivebot.
//
// В этом файле (client.go):
//   - настраивается HTTP-клиент с фиксированным таймаутом и общий троттлер запросов;
//   - все исходящие вызовы (forward, sendMessage) проходят через throttle.Do,
//     чтобы один медленный вызов не разгонял остальные за лимиты Telegram;
//     серверный retry_after при flood control соблюдается точно;
//   - уведомления в лог-канал отправляются best-effort: ошибки проглатываются
//     и попадают только в локальный лог.
package botapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"telegram-archivebot/internal/infra/logger"
	"telegram-archivebot/internal/infra/throttle"
)

// updateTimeoutSec — long-poll таймаут GetUpdates, секунды.
const updateTimeoutSec = 60

// sendRetries ограничивает повторы исходящего вызова при транзиентных ошибках.
// Паузы по retry_after лимит не расходуют.
const sendRetries = 2

// Client оборачивает tgbotapi.BotAPI общим троттлером и лог-каналом.
// Нулевой logChannel отключает уведомления операционного канала.
type Client struct {
	api        *tgbotapi.BotAPI
	throttler  *throttle.Throttler
	logChannel int64
}

// New создаёт клиента Bot API.
//
// Поведение:
//   - HTTP-клиент получает таймаут httpTimeout, перекрывающий long-poll GetUpdates;
//   - rps задаёт целевую среднюю частоту исходящих запросов (burst = 2*rps).
func New(token string, rps int, httpTimeout time.Duration, logChannel int64) (*Client, error) {
	httpClient := &http.Client{Timeout: httpTimeout + updateTimeoutSec*time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "create bot api client")
	}
	return &Client{
		api: api,
		throttler: throttle.New(rps,
			throttle.WithMaxRetries(sendRetries),
			throttle.WithWaitExtractors(retryAfterExtractor())),
		logChannel: logChannel,
	}, nil
}

// retryAfterExtractor извлекает серверный retry_after из ошибок Bot API.
// Интервал сервера соблюдается ровно, без джиттера, чтобы не сдвигать
// серверное окно повторных попыток.
func retryAfterExtractor() throttle.WaitExtractor {
	return func(err error) (time.Duration, bool) {
		var apiErr *tgbotapi.Error
		if !errors.As(err, &apiErr) {
			return 0, false
		}
		if apiErr.RetryAfter <= 0 {
			return 0, false
		}
		return time.Duration(apiErr.RetryAfter) * time.Second, true
	}
}

// Self возвращает username авторизованного бота.
func (c *Client) Self() string {
	return c.api.Self.UserName
}

// Updates возвращает канал входящих апдейтов (long polling).
func (c *Client) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeoutSec
	return c.api.GetUpdatesChan(u)
}

// StopUpdates останавливает long polling; канал Updates закрывается.
func (c *Client) StopUpdates() {
	c.api.StopReceivingUpdates()
}

// send прогоняет один вызов Bot API через троттлер.
func (c *Client) send(ctx context.Context, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	var sent tgbotapi.Message
	err := c.throttler.Do(ctx, func() error {
		var sendErr error
		sent, sendErr = c.api.Send(msg)
		return sendErr
	})
	return sent, err
}

// Forward пересылает одно сообщение в dstChat и возвращает ID пересланного
// сообщения в назначении.
func (c *Client) Forward(ctx context.Context, dstChat, srcChat int64, messageID int) (int, error) {
	sent, err := c.send(ctx, tgbotapi.NewForward(dstChat, srcChat, messageID))
	if err != nil {
		return 0, errors.Wrap(err, "forward message")
	}
	return sent.MessageID, nil
}

// SendMessage отправляет текст в указанный чат.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if _, err := c.send(ctx, tgbotapi.NewMessage(chatID, text)); err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}

// Reply отправляет текст в ответ на конкретное сообщение.
func (c *Client) Reply(ctx context.Context, chatID int64, replyTo int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if _, err := c.send(ctx, msg); err != nil {
		return errors.Wrap(err, "send reply")
	}
	return nil
}

// Notify пишет событие в операционный лог-канал. Best-effort: сбой доставки
// логируется локально и не влияет на вызывающего.
func (c *Client) Notify(ctx context.Context, text string) {
	if c.logChannel == 0 {
		return
	}
	if err := c.SendMessage(ctx, c.logChannel, text); err != nil {
		logger.Warn("log channel notification failed", zap.Error(err))
	}
}
