// Package deeplink строит платформенные ссылки t.me на сообщения приватного
// архивного канала. Telegram адресует приватные каналы «внутренним» ID без
// префикса -100: канал -1001234567890 доступен как https://t.me/c/1234567890/<msg>.
package deeplink

import (
	"fmt"
	"strconv"
	"strings"
)

// internalID приводит ID канала к виду, используемому в ссылках t.me/c/:
// отбрасывает префикс -100 у супергрупп/каналов, либо просто знак минус.
func internalID(channelID int64) string {
	s := strconv.FormatInt(channelID, 10)
	if rest, ok := strings.CutPrefix(s, "-100"); ok {
		return rest
	}
	return strings.TrimPrefix(s, "-")
}

// Message возвращает deep-link на одно сообщение архивного канала.
func Message(channelID int64, messageID int) string {
	return fmt.Sprintf("https://t.me/c/%s/%d", internalID(channelID), messageID)
}

// Range возвращает deep-link на непрерывный диапазон сообщений в синтаксисе
// first-last.
func Range(channelID int64, firstID, lastID int) string {
	return fmt.Sprintf("https://t.me/c/%s/%d-%d", internalID(channelID), firstID, lastID)
}
