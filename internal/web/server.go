// Package web — HTTP-сервер Resolution Service. Единственная публичная
// операция: GET /{code} → 302 на deep-link заархивированного контента
// (свежесокращённый), либо 404 с телом "Invalid shortlink!". Авторизации нет
// намеренно: смысл механизма — публичная разделяемая ссылка.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"telegram-archivebot/internal/infra/logger"
	"telegram-archivebot/internal/shortener"
	"telegram-archivebot/internal/store"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second

	// resolveTimeout ограничивает обработку одного запроса: поход в хранилище
	// плюс best-effort сокращение ссылки.
	resolveTimeout = 20 * time.Second
)

// Server — HTTP-сервер резолвера кодов.
type Server struct {
	srv            *http.Server
	store          store.Store
	shorten        shortener.Shortener
	archiveChannel int64
}

// NewServer настраивает роутинг и таймауты. Хранилище используется только на
// чтение; записи в него делает отдельный процесс archivebot.
func NewServer(addr string, st store.Store, sh shortener.Shortener, archiveChannel int64) *Server {
	s := &Server{
		store:          st,
		shorten:        sh,
		archiveChannel: archiveChannel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleResolve)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(mux),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

// Handler возвращает корневой обработчик сервера. Используется тестами,
// чтобы гонять роутинг через httptest без реального ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start запускает сервер; блокируется до Shutdown.
func (s *Server) Start() error {
	logger.Info("Starting resolver server", zap.String("address", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("resolver server error: %w", err)
	}
	return nil
}

// Shutdown корректно останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down resolver server...")
	return s.srv.Shutdown(ctx)
}

// handleHealth — проверка живости процесса.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	writeResponse(w, []byte("OK"))
}

// loggingMiddleware логирует все запросы.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debugf("HTTP %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
