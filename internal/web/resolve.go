package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"telegram-archivebot/internal/deeplink"
	"telegram-archivebot/internal/infra/logger"
	"telegram-archivebot/internal/store"
)

// invalidBody — тело 404-ответа для неизвестных и мусорных кодов.
const invalidBody = "Invalid shortlink!"

// handleResolve разрешает GET /{code} в редирект на deep-link контента.
// Промах по хранилищу — штатный исход (404), а не ошибка; сбой хранилища
// тоже маскируется 404-ом, чтобы сервис всегда отвечал либо редиректом,
// либо "Invalid shortlink!".
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	code := strings.Trim(r.URL.Path, "/")
	if !store.ValidCode(code) {
		s.writeInvalid(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), resolveTimeout)
	defer cancel()

	rec, err := s.store.Get(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		s.writeInvalid(w)
		return
	}
	if err != nil {
		logger.Error("resolve lookup failed", zap.String("code", code), zap.Error(err))
		s.writeInvalid(w)
		return
	}

	var link string
	if rec.Kind == store.KindBatch {
		link = deeplink.Range(s.archiveChannel, rec.FirstID, rec.LastID)
	} else {
		link = deeplink.Message(s.archiveChannel, rec.MessageID)
	}

	// Сокращаем на момент чтения, не храня результат: короткие ссылки внешнего
	// провайдера не считаются авторитетными.
	http.Redirect(w, r, s.shorten.Shorten(ctx, link), http.StatusFound)
}

// writeInvalid отвечает 404 с каноническим телом.
func (s *Server) writeInvalid(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	writeResponse(w, []byte(invalidBody))
}
