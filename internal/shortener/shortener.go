// Package shortener — best-effort сокращение публичных ссылок через внешние
// сервисы. Единственный универсальный контракт: Shorten никогда не роняет
// вызывающего — любая сетевая ошибка, не-2xx ответ или мусорное тело деградируют
// до возврата исходного URL (или до вторичного провайдера в цепочке). Выбор
// провайдера статичен на процесс и задаётся конфигурацией.
package shortener

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"telegram-archivebot/internal/infra/config"
	"telegram-archivebot/internal/infra/logger"
)

// Shortener преобразует длинный URL в короткий. Реализации обязаны возвращать
// корректный URL при любом исходе; ошибки наружу не отдаются.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) string
}

// maxResponseBytes ограничивает чтение тела ответа провайдера. Сокращённая
// ссылка укладывается в сотни байт; всё сверх лимита — признак мусорного ответа.
const maxResponseBytes = 2048

// Endpoint-шаблоны известных провайдеров. %s заменяется на query-escaped URL.
const (
	tinyurlEndpoint = "https://tinyurl.com/api-create.php?url=%s"
	isgdEndpoint    = "https://is.gd/create.php?format=simple&url=%s"
)

// identity — провайдер-заглушка: возвращает вход без изменений.
type identity struct{}

func (identity) Shorten(_ context.Context, longURL string) string { return longURL }

// httpProvider — GET-провайдер с endpoint-шаблоном и plain-text ответом
// (tinyurl, is.gd и совместимые кастомные сервисы).
type httpProvider struct {
	name     string
	endpoint string
	apiKey   string
	client   *http.Client
}

// Shorten выполняет GET запрос и возвращает тело ответа, если оно похоже на URL.
// Любой сбой тихо деградирует до исходной ссылки.
func (p *httpProvider) Shorten(ctx context.Context, longURL string) string {
	target := fmt.Sprintf(p.endpoint, url.QueryEscape(longURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		logger.Debug("shortener: build request failed", zap.String("provider", p.name), zap.Error(err))
		return longURL
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		logger.Debug("shortener: request failed", zap.String("provider", p.name), zap.Error(err))
		return longURL
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Debug("shortener: non-2xx response",
			zap.String("provider", p.name), zap.Int("status", resp.StatusCode))
		return longURL
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.Debug("shortener: read body failed", zap.String("provider", p.name), zap.Error(err))
		return longURL
	}

	short := strings.TrimSpace(string(body))
	if !looksLikeURL(short) {
		logger.Debug("shortener: malformed payload", zap.String("provider", p.name))
		return longURL
	}
	return short
}

// chain пробует провайдеров по очереди и возвращает первый результат,
// отличающийся от входа. Если все деградировали — возвращается вход.
type chain struct {
	providers []Shortener
}

func (c *chain) Shorten(ctx context.Context, longURL string) string {
	for _, p := range c.providers {
		if short := p.Shorten(ctx, longURL); short != longURL {
			return short
		}
	}
	return longURL
}

// looksLikeURL проверяет, что строка — абсолютный http(s) URL без переводов строк.
func looksLikeURL(s string) bool {
	if s == "" || strings.ContainsAny(s, " \n\r\t") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// New собирает Shortener по конфигурации процесса. Неизвестный провайдер
// отфильтрован ещё на уровне config; сюда приходят только валидные значения.
func New(env config.EnvConfig) Shortener {
	client := &http.Client{Timeout: time.Duration(env.HTTPTimeoutSec) * time.Second}

	switch env.Shortener {
	case "none":
		return identity{}
	case "tinyurl":
		return &httpProvider{name: "tinyurl", endpoint: tinyurlEndpoint, apiKey: env.ShortenerAPIKey, client: client}
	case "isgd":
		return &httpProvider{name: "isgd", endpoint: isgdEndpoint, client: client}
	case "custom":
		// Кастомный endpoint с fallback на tinyurl перед деградацией до identity.
		return &chain{providers: []Shortener{
			&httpProvider{name: "custom", endpoint: env.ShortenerEndpoint, apiKey: env.ShortenerAPIKey, client: client},
			&httpProvider{name: "tinyurl", endpoint: tinyurlEndpoint, client: client},
		}}
	default:
		return identity{}
	}
}
