// Package bot — командный слой Archive Service: разбор операторских команд из
// апдейтов Bot API, вызов доменного сервиса и преобразование ошибок в короткие
// человекочитаемые ответы. Ни одна команда не роняет процесс: все ошибки
// перехватываются на границе команды, детали уходят в локальный лог и
// best-effort в операционный канал.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"telegram-archivebot/internal/admins"
	"telegram-archivebot/internal/archive"
	"telegram-archivebot/internal/infra/logger"
	"telegram-archivebot/internal/store"
)

// transport — минимальный срез botapi.Client, нужный роутеру для ответов.
type transport interface {
	Reply(ctx context.Context, chatID int64, replyTo int, text string) error
	Notify(ctx context.Context, text string)
}

// updateSource выдаёт канал входящих апдейтов и умеет останавливать long polling.
type updateSource interface {
	Updates() tgbotapi.UpdatesChannel
	StopUpdates()
}

const greeting = "Hello! I'm a file-sharing bot. " +
	"Use /link to share content or /batch for multiple files (admins only)."

const adminPanel = `Admin Panel:
/list_content - List all stored content
/list_users - List allowed admins
/add_user <user_id> - Add admin
/remove_user <user_id> - Remove admin
/broadcast <message> - Broadcast to all uploaders`

// Bot маршрутизирует команды оператора на archive.Service и allow-list.
type Bot struct {
	svc    *archive.Service
	admins *admins.List
	tr     transport
}

// New собирает роутер команд.
func New(svc *archive.Service, list *admins.List, tr transport) *Bot {
	return &Bot{svc: svc, admins: list, tr: tr}
}

// Run обрабатывает апдейты из src до отмены контекста. Каждое сообщение
// обрабатывается независимо; паник в обработчиках нет — ошибки конвертируются
// в ответы оператору.
func (b *Bot) Run(ctx context.Context, src updateSource) {
	updates := src.Updates()
	for {
		select {
		case <-ctx.Done():
			src.StopUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.HandleCommand(ctx, update.Message)
		}
	}
}

// HandleCommand разбирает одну команду и отвечает оператору. Экспортирована
// отдельно от Run, чтобы тестировать маршрутизацию без long polling.
func (b *Bot) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	operator := msg.From.ID

	switch msg.Command() {
	case "start":
		b.reply(ctx, msg, greeting)
	case "link":
		b.handleLink(ctx, msg, operator)
	case "batch":
		b.handleBatch(ctx, msg, operator)
	case "admin":
		if !b.requireAdmin(ctx, msg, operator) {
			return
		}
		b.reply(ctx, msg, adminPanel)
	case "list_content":
		b.handleListContent(ctx, msg, operator)
	case "list_users":
		if !b.requireAdmin(ctx, msg, operator) {
			return
		}
		b.handleListUsers(ctx, msg)
	case "add_user":
		if !b.requireAdmin(ctx, msg, operator) {
			return
		}
		b.handleAddUser(ctx, msg, operator)
	case "remove_user":
		if !b.requireAdmin(ctx, msg, operator) {
			return
		}
		b.handleRemoveUser(ctx, msg, operator)
	case "broadcast":
		b.handleBroadcast(ctx, msg, operator)
	}
}

// requireAdmin проверяет allow-list. Отказ видим оператору и фиксируется в
// операционном канале.
func (b *Bot) requireAdmin(ctx context.Context, msg *tgbotapi.Message, operator int64) bool {
	if b.admins.Contains(operator) {
		return true
	}
	b.reply(ctx, msg, fmt.Sprintf("Sorry, only admins can use /%s!", msg.Command()))
	b.tr.Notify(ctx, fmt.Sprintf("Non-admin %d tried to use /%s.", operator, msg.Command()))
	return false
}

// handleLink архивирует одно сообщение: цель — reply-таргет команды, либо само
// сообщение с командой (контент с подписью /link).
func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message, operator int64) {
	target := msg.MessageID
	if msg.ReplyToMessage != nil {
		target = msg.ReplyToMessage.MessageID
	}

	link, err := b.svc.ArchiveSingle(ctx, operator, msg.Chat.ID, target)
	switch {
	case errors.Is(err, archive.ErrUnauthorized):
		b.reply(ctx, msg, "Sorry, only admins can use /link!")
		b.tr.Notify(ctx, fmt.Sprintf("Non-admin %d tried to use /link.", operator))
	case err != nil:
		logger.Error("archive single failed", zap.Int64("operator", operator), zap.Error(err))
		b.reply(ctx, msg, "Error saving content!")
		b.tr.Notify(ctx, fmt.Sprintf("Error in /link for %d: %v", operator, err))
	default:
		b.reply(ctx, msg, "Content saved! Shareable link: "+link)
	}
}

// handleBatch архивирует диапазон: /batch <first_id> <last_id>.
func (b *Bot) handleBatch(ctx context.Context, msg *tgbotapi.Message, operator int64) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		b.reply(ctx, msg, "Usage: /batch <first_message_id> <last_message_id>")
		return
	}
	firstID, errFirst := strconv.Atoi(args[0])
	lastID, errLast := strconv.Atoi(args[1])
	if errFirst != nil || errLast != nil {
		b.reply(ctx, msg, "Usage: /batch <first_message_id> <last_message_id>")
		return
	}

	link, err := b.svc.ArchiveBatch(ctx, operator, msg.Chat.ID, firstID, lastID)
	switch {
	case errors.Is(err, archive.ErrUnauthorized):
		b.reply(ctx, msg, "Sorry, only admins can use /batch!")
		b.tr.Notify(ctx, fmt.Sprintf("Non-admin %d tried to use /batch.", operator))
	case errors.Is(err, archive.ErrInvalidRange):
		b.reply(ctx, msg, "First ID must be less than last ID!")
	case err != nil:
		logger.Error("archive batch failed", zap.Int64("operator", operator), zap.Error(err))
		b.reply(ctx, msg, "Error saving batch!")
		b.tr.Notify(ctx, fmt.Sprintf("Error in /batch for %d: %v", operator, err))
	default:
		b.reply(ctx, msg, "Batch saved! Shareable link: "+link)
	}
}

// handleListContent перечисляет все записи со свежими ссылками.
func (b *Bot) handleListContent(ctx context.Context, msg *tgbotapi.Message, operator int64) {
	items, err := b.svc.ListContent(ctx, operator)
	switch {
	case errors.Is(err, archive.ErrUnauthorized):
		b.reply(ctx, msg, "Sorry, only admins can use /list_content!")
		b.tr.Notify(ctx, fmt.Sprintf("Non-admin %d tried to use /list_content.", operator))
		return
	case err != nil:
		logger.Error("list content failed", zap.Int64("operator", operator), zap.Error(err))
		b.reply(ctx, msg, "Error listing content!")
		b.tr.Notify(ctx, fmt.Sprintf("Error in /list_content for %d: %v", operator, err))
		return
	}
	if len(items) == 0 {
		b.reply(ctx, msg, "No content stored!")
		return
	}

	var sb strings.Builder
	sb.WriteString("Stored Content:\n")
	for _, it := range items {
		rec := it.Record
		if rec.Kind == store.KindBatch {
			fmt.Fprintf(&sb, "Batch: %s\nMessages: %d-%d\n", rec.Code, rec.FirstID, rec.LastID)
		} else {
			fmt.Fprintf(&sb, "Content: %s\nMessage ID: %d\n", rec.Code, rec.MessageID)
		}
		fmt.Fprintf(&sb, "Uploader: %d\nUploaded: %s\nLink: %s\n\n",
			rec.UploaderID, rec.CreatedAt.Format("2006-01-02 15:04:05"), it.Link)
	}
	b.reply(ctx, msg, sb.String())
}

// handleListUsers печатает текущий allow-list.
func (b *Bot) handleListUsers(ctx context.Context, msg *tgbotapi.Message) {
	ids := b.admins.IDs()
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	b.reply(ctx, msg, "Allowed admins: "+strings.Join(parts, ", "))
}

// handleAddUser добавляет ID в allow-list: /add_user <user_id>.
func (b *Bot) handleAddUser(ctx context.Context, msg *tgbotapi.Message, operator int64) {
	id, ok := parseUserID(msg.CommandArguments())
	if !ok {
		b.reply(ctx, msg, "Usage: /add_user <user_id>")
		return
	}
	added, err := b.admins.Add(id)
	switch {
	case err != nil:
		logger.Error("add admin failed", zap.Int64("id", id), zap.Error(err))
		b.reply(ctx, msg, "Error updating admin list!")
		b.tr.Notify(ctx, fmt.Sprintf("Error adding user %d: %v", id, err))
	case !added:
		b.reply(ctx, msg, "User already an admin!")
	default:
		b.reply(ctx, msg, fmt.Sprintf("User %d added as admin!", id))
		b.tr.Notify(ctx, fmt.Sprintf("User %d added as admin by %d", id, operator))
	}
}

// handleRemoveUser убирает ID из allow-list: /remove_user <user_id>.
func (b *Bot) handleRemoveUser(ctx context.Context, msg *tgbotapi.Message, operator int64) {
	id, ok := parseUserID(msg.CommandArguments())
	if !ok {
		b.reply(ctx, msg, "Usage: /remove_user <user_id>")
		return
	}
	removed, err := b.admins.Remove(id)
	switch {
	case err != nil:
		logger.Error("remove admin failed", zap.Int64("id", id), zap.Error(err))
		b.reply(ctx, msg, "Error updating admin list!")
		b.tr.Notify(ctx, fmt.Sprintf("Error removing user %d: %v", id, err))
	case !removed:
		b.reply(ctx, msg, "User not an admin!")
	default:
		b.reply(ctx, msg, fmt.Sprintf("User %d removed from admins!", id))
		b.tr.Notify(ctx, fmt.Sprintf("User %d removed from admins by %d", id, operator))
	}
}

// handleBroadcast рассылает текст всем загрузчикам: /broadcast <message>.
func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message, operator int64) {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.reply(ctx, msg, "Usage: /broadcast <message>")
		return
	}

	recipients, err := b.svc.Broadcast(ctx, operator, text)
	switch {
	case errors.Is(err, archive.ErrUnauthorized):
		b.reply(ctx, msg, "Sorry, only admins can use /broadcast!")
		b.tr.Notify(ctx, fmt.Sprintf("Non-admin %d tried to use /broadcast.", operator))
	case err != nil:
		logger.Error("broadcast failed", zap.Int64("operator", operator), zap.Error(err))
		b.reply(ctx, msg, "Error broadcasting!")
		b.tr.Notify(ctx, fmt.Sprintf("Error broadcasting for %d: %v", operator, err))
	default:
		b.reply(ctx, msg, fmt.Sprintf("Broadcast sent to %d recipients!", recipients))
	}
}

// parseUserID разбирает единственный числовой аргумент команды.
func parseUserID(args string) (int64, bool) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// reply отвечает на сообщение оператора; сбой доставки только логируется.
func (b *Bot) reply(ctx context.Context, msg *tgbotapi.Message, text string) {
	if err := b.tr.Reply(ctx, msg.Chat.ID, msg.MessageID, text); err != nil {
		logger.Warn("reply failed", zap.Int64("chat", msg.Chat.ID), zap.Error(err))
	}
}
