// Package throttle — ограничение скорости и повторные попытки для исходящих
// вызовов Bot API. В основе — токен-бакет (RPS + burst) поверх x/time/rate и
// экспоненциальный backoff с джиттером. Серверные указания подождать
// (retry_after при flood control) извлекаются из ошибок настраиваемыми
// WaitExtractor и соблюдаются без роста счётчика попыток. Троттлер
// потокобезопасен: Do может вызываться параллельно.
package throttle

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/time/rate"
)

// burstMultiplier задаёт burst по умолчанию как кратный rate. Значение 2 означает
// способность кратковременно «впрыснуть» до 2*rate операций в секунду.
const burstMultiplier = 2

// WaitExtractor анализирует ошибку и, при необходимости, возвращает длительность
// ожидания, запрошенную сервером. Булев флаг показывает, что экстрактор распознал
// формат ошибки; первый совпавший в цепочке определяет паузу перед повтором.
type WaitExtractor func(err error) (time.Duration, bool)

// Option задаёт дополнительные параметры троттлера при создании.
type Option func(*Throttler)

// WithMaxRetries ограничивает количество повторных попыток. Значение <=0 означает
// отсутствие ограничения.
func WithMaxRetries(maxRetries int) Option {
	return func(t *Throttler) {
		t.maxRetries = maxRetries
	}
}

// WithBurst переопределяет ёмкость токен-бакета. Если burst <= 0, будет
// использовано значение по умолчанию 2*rate.
func WithBurst(burst int) Option {
	return func(t *Throttler) {
		t.burst = burst
	}
}

// WithWaitExtractors регистрирует набор экстракторов серверных задержек.
func WithWaitExtractors(extractors ...WaitExtractor) Option {
	return func(t *Throttler) {
		t.waitExtractors = append(t.waitExtractors, extractors...)
	}
}

// WithRandom позволяет задать функцию генерации случайных чисел. Используется
// в основном для детерминированных тестов джиттера.
func WithRandom(fn func() float64) Option {
	return func(t *Throttler) {
		if fn != nil {
			t.randomFn = fn
		}
	}
}

// Throttler инкапсулирует токен-бакет и стратегию повторных попыток с
// экспоненциальным бэкофом и поддержкой серверных задержек.
type Throttler struct {
	limiter *rate.Limiter
	burst   int

	waitExtractors []WaitExtractor
	maxRetries     int

	randomFn func() float64
}

// New создаёт троттлер с частотой rps (операций/сек). По умолчанию
// burst = 2*rps с нижней границей 1 и без лимита ретраев.
func New(rps int, opts ...Option) *Throttler {
	if rps <= 0 {
		rps = 1
	}

	t := &Throttler{
		burst:      rps * burstMultiplier,
		maxRetries: -1,
		randomFn:   rand.Float64,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.burst < 1 {
		t.burst = rps * burstMultiplier
	}
	t.limiter = rate.NewLimiter(rate.Limit(rps), t.burst)
	return t
}

// Do выполняет функцию fn с лимитами токен-бакета и ретраями.
// Алгоритм:
//  1. ждём токен (с уважением к ctx);
//  2. вызываем fn;
//  3. если err: контекст сорван → вернуть; extractor дал паузу → подождать и
//     повторить без роста attempt; иначе экспоненциальный backoff с джиттером,
//     учитывая лимит ретраев.
//
// Возвращает nil при успехе либо последнюю ошибку при исчерпании стратегии.
func (t *Throttler) Do(ctx context.Context, fn func() error) error {
	attempt := 0
	for {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}

		callErr := fn()
		if callErr == nil {
			return nil
		}

		if errors.Is(callErr, context.Canceled) || errors.Is(callErr, context.DeadlineExceeded) {
			return callErr
		}

		if waitDur, ok := t.extractWait(callErr); ok {
			// Сервер велел подождать — ждём и повторяем без роста attempt.
			if wErr := wait(ctx, waitDur); wErr != nil {
				return wErr
			}
			continue
		}

		if t.maxRetries > 0 && attempt >= t.maxRetries {
			return errors.Wrapf(callErr, "throttle: max retries reached (%d)", t.maxRetries)
		}

		sleep := t.expBackoff(attempt)
		attempt++
		if wErr := wait(ctx, sleep); wErr != nil {
			return wErr
		}
	}
}

// extractWait запускает WaitExtractor по цепочке и возвращает первую распознанную паузу.
func (t *Throttler) extractWait(err error) (time.Duration, bool) {
	for _, extractor := range t.waitExtractors {
		if extractor == nil {
			continue
		}
		if waitDur, ok := extractor(err); ok {
			return waitDur, true
		}
	}
	return 0, false
}

// wait ждёт duration или отмену контекста.
func wait(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer stopTimer(timer)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// expBackoff вычисляет задержку 2^attempt секунд, ограниченную 60с и умноженную
// на джиттер из диапазона [0.85..1.15].
func (t *Throttler) expBackoff(attempt int) time.Duration {
	const (
		jitterRange = 0.3
		jitterMin   = 0.85
		maxSeconds  = 60.0
		basePower   = 2.0
	)

	base := math.Pow(basePower, float64(attempt))
	if base > maxSeconds {
		base = maxSeconds
	}

	jitter := t.randomFn()*jitterRange + jitterMin
	seconds := base * jitter
	return time.Duration(seconds * float64(time.Second))
}

// stopTimer безопасно останавливает таймер и дренирует его канал, если тик уже произошёл.
func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
