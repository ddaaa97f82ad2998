// Пакет config отвечает за сбор и предоставление конфигурации обоих процессов
// (archivebot и resolver). Он:
//  1. читает переменные окружения из .env (через godotenv),
//  2. нормализует и валидирует входные значения,
//  3. накапливает предупреждения о подставленных значениях по умолчанию,
//  4. предоставляет доступ к результату через singleton.
//
// Бизнес-контекст: бот пересылает контент операторов в архивный канал и выдаёт
// короткие публичные коды; resolver превращает код обратно в deep-link. Конфиг
// управляет учётными данными бота, списком администраторов, выбором бэкенда
// хранилища и провайдера сокращателя ссылок, а также логированием.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"telegram-archivebot/internal/shared"
)

// EnvConfig описывает параметры, приходящие из окружения (.env). Это
// «операционные» настройки запуска: токен бота, каналы, домен публичных ссылок,
// бэкенд хранилища, провайдер сокращателя, лог-уровень и т. д.
//
// NB: значения уже проходят минимальную валидацию и нормализацию в loadConfig.
// В рантайме по месту использования предполагается, что EnvConfig последователен.
type EnvConfig struct {
	BotToken         string
	AdminIDs         []int64
	LogChannelID     int64
	ArchiveChannelID int64
	Domain           string
	// Сокращатель ссылок
	Shortener         string
	ShortenerAPIKey   string
	ShortenerEndpoint string
	// Хранилище записей
	StoreDriver   string
	StoreFile     string
	MongoURI      string
	MongoDatabase string
	// Снапшот списка администраторов
	AdminsFile string
	// Resolution Service
	ListenAddress string
	// Сетевые лимиты
	ThrottleRPS    int
	HTTPTimeoutSec int
	// Логирование
	LogLevel          string
	LogFile           string
	LogFileLevel      string
	LogFileMaxSize    int
	LogFileMaxBackups int
	LogFileMaxAge     int
	LogFileCompress   bool
}

// Config хранит конфигурацию среды и накопленные при загрузке предупреждения.
type Config struct {
	Env      EnvConfig
	warnings []string
	mu       sync.RWMutex
}

// Значения по умолчанию для параметров окружения и связанных файлов.
const (
	defaultShortener      = "tinyurl"
	defaultStoreDriver    = "bolt"
	defaultStoreFile      = "data/content.bbolt"
	defaultMongoDatabase  = "archivebot"
	defaultAdminsFile     = "data/admins.json"
	defaultListenAddress  = "127.0.0.1:8000"
	defaultThrottleRPS    = 1
	defaultHTTPTimeoutSec = 30
	defaultLogLevel       = "info"
	// Файловое логирование (LOG_FILE не имеет дефолта — должен быть явно указан для активации)
	defaultLogFileLevel      = "debug"
	defaultLogFileMaxSize    = 50
	defaultLogFileMaxBackups = 3
	defaultLogFileMaxAge     = 7
	defaultLogFileCompress   = true
)

var (
	cfgInstance *Config
	cfgDone     bool
)

// Load — точка входа для инициализации глобальной конфигурации процесса.
// При первом вызове читает .env, формирует EnvConfig и фиксирует результат в
// singleton cfgInstance. Повторный вызов запрещён (возвращается ошибка), чтобы
// избежать гонок конфигурации на старте.
func Load(envPath string) error {
	if cfgDone {
		return errors.New("config already loaded")
	}
	newCfg, err := loadConfig(envPath)
	if err != nil {
		return err
	}
	cfgInstance = newCfg
	cfgDone = true
	return nil
}

// loadConfig выполняет фактическую загрузку/валидацию без установки глобального
// состояния. Удобно для тестов: можно собрать временный Config и проверить его.
func loadConfig(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	botToken := strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	if botToken == "" {
		return nil, errors.New("env BOT_TOKEN must be set")
	}

	archiveChannel, err := parseRequiredInt64("ARCHIVE_CHANNEL_ID")
	if err != nil {
		return nil, err
	}

	domain := strings.TrimSpace(os.Getenv("DOMAIN"))
	if domain == "" {
		return nil, errors.New("env DOMAIN must be set")
	}
	domain = strings.TrimSuffix(domain, "/")

	var warnings []string

	adminIDs := parseIDList("ADMIN_IDS", os.Getenv("ADMIN_IDS"), &warnings)
	if len(adminIDs) == 0 {
		return nil, errors.New("env ADMIN_IDS must contain at least one numeric ID")
	}

	logChannel := parseInt64Default("LOG_CHANNEL_ID", 0, &warnings)
	shortenerName := sanitizeShortener(os.Getenv("SHORTENER"), &warnings)
	shortenerKey := strings.TrimSpace(os.Getenv("SHORTENER_API_KEY"))
	shortenerEndpoint := strings.TrimSpace(os.Getenv("SHORTENER_ENDPOINT"))
	if shortenerName == "custom" && shortenerEndpoint == "" {
		return nil, errors.New(`env SHORTENER_ENDPOINT must be set when SHORTENER is "custom"`)
	}

	storeDriver := sanitizeStoreDriver(os.Getenv("STORE_DRIVER"), &warnings)
	storeFile := sanitizeFile("STORE_FILE", os.Getenv("STORE_FILE"), defaultStoreFile, &warnings)
	mongoURI := strings.TrimSpace(os.Getenv("MONGO_URI"))
	if storeDriver == "mongo" && mongoURI == "" {
		return nil, errors.New(`env MONGO_URI must be set when STORE_DRIVER is "mongo"`)
	}
	mongoDatabase := sanitizeFile("MONGO_DATABASE", os.Getenv("MONGO_DATABASE"), defaultMongoDatabase, &warnings)

	adminsFile := sanitizeFile("ADMINS_FILE", os.Getenv("ADMINS_FILE"), defaultAdminsFile, &warnings)
	listenAddress := sanitizeFile("LISTEN_ADDRESS", os.Getenv("LISTEN_ADDRESS"), defaultListenAddress, &warnings)
	throttleRPS := parseIntDefault("THROTTLE_RPS", defaultThrottleRPS, greaterThanZero, &warnings)
	httpTimeout := parseIntDefault("HTTP_TIMEOUT_SEC", defaultHTTPTimeoutSec, greaterThanZero, &warnings)

	logLevel := sanitizeLogLevel("LOG_LEVEL", os.Getenv("LOG_LEVEL"), defaultLogLevel, &warnings)
	logFile := strings.TrimSpace(os.Getenv("LOG_FILE"))
	logFileLevel := sanitizeLogLevel("LOG_FILE_LEVEL", os.Getenv("LOG_FILE_LEVEL"), defaultLogFileLevel, &warnings)
	logFileMaxSize := parseIntDefault("LOG_FILE_MAX_SIZE_MB", defaultLogFileMaxSize, greaterThanZero, &warnings)
	logFileMaxBackups := parseIntDefault("LOG_FILE_MAX_BACKUPS", defaultLogFileMaxBackups, nonNegative, &warnings)
	logFileMaxAge := parseIntDefault("LOG_FILE_MAX_AGE_DAYS", defaultLogFileMaxAge, nonNegative, &warnings)
	logFileCompress := parseBoolDefault("LOG_FILE_COMPRESS", defaultLogFileCompress, &warnings)

	env := EnvConfig{
		BotToken:          botToken,
		AdminIDs:          adminIDs,
		LogChannelID:      logChannel,
		ArchiveChannelID:  archiveChannel,
		Domain:            domain,
		Shortener:         shortenerName,
		ShortenerAPIKey:   shortenerKey,
		ShortenerEndpoint: shortenerEndpoint,
		StoreDriver:       storeDriver,
		StoreFile:         storeFile,
		MongoURI:          mongoURI,
		MongoDatabase:     mongoDatabase,
		AdminsFile:        adminsFile,
		ListenAddress:     listenAddress,
		ThrottleRPS:       throttleRPS,
		HTTPTimeoutSec:    httpTimeout,
		LogLevel:          logLevel,
		LogFile:           logFile,
		LogFileLevel:      logFileLevel,
		LogFileMaxSize:    logFileMaxSize,
		LogFileMaxBackups: logFileMaxBackups,
		LogFileMaxAge:     logFileMaxAge,
		LogFileCompress:   logFileCompress,
	}

	return &Config{Env: env, warnings: warnings}, nil
}

// Warnings возвращает накопленные предупреждения, возникшие при загрузке .env
// (например, когда подставлено значение по умолчанию). Возвращается копия.
func Warnings() []string {
	cfgInstance.mu.RLock()
	defer cfgInstance.mu.RUnlock()
	result := make([]string, len(cfgInstance.warnings))
	copy(result, cfgInstance.warnings)
	return result
}

// Env возвращает EnvConfig из глобального singleton. Это неизменяемый снимок
// на момент последней загрузки; для обновления надо перечитать конфиг целиком.
func Env() EnvConfig {
	return cfgInstance.Env
}

// parseRequiredInt64 читает обязательную целочисленную переменную окружения name.
// Если переменная не задана или не является корректным числом — возвращает ошибку.
// Используется для критичных параметров, без которых приложение не стартует.
func parseRequiredInt64(name string) (int64, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return 0, fmt.Errorf("env %s must be set", name)
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("env %s must be a valid integer: %w", name, err)
	}
	return v, nil
}

// parseIntDefault читает name как int. Если пусто/некорректно/не проходит
// дополнительную проверку validator — возвращает defaultVal и пишет предупреждение.
// Это позволяет не падать на несущественных настройках и иметь дефолты.
func parseIntDefault(name string, defaultVal int, validator func(int) bool, warnings *[]string) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		appendWarningf(warnings, "env %s is not set; using default %d", name, defaultVal)
		return defaultVal
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid integer; using default %d", name, value, defaultVal)
		return defaultVal
	}
	if validator != nil && !validator(v) {
		appendWarningf(warnings, "env %s value %d does not satisfy constraints; using default %d", name, v, defaultVal)
		return defaultVal
	}
	return v
}

// parseInt64Default читает name как int64 с дефолтом и предупреждением.
// Применяется для необязательных идентификаторов каналов.
func parseInt64Default(name string, defaultVal int64, warnings *[]string) int64 {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		appendWarningf(warnings, "env %s is not set; using default %d", name, defaultVal)
		return defaultVal
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid integer; using default %d", name, value, defaultVal)
		return defaultVal
	}
	return v
}

// parseBoolDefault читает name как bool. Если пусто/некорректно — возвращает defaultVal и пишет предупреждение.
func parseBoolDefault(name string, defaultVal bool, warnings *[]string) bool {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		appendWarningf(warnings, "env %s is not set; using default %v", name, defaultVal)
		return defaultVal
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid boolean; using default %v", name, value, defaultVal)
		return defaultVal
	}
	return v
}

// parseIDList парсит CSV-строку числовых ID (формат "123,456"). Некорректные
// элементы пропускаются с предупреждением, дубликаты убираются с сохранением
// порядка первого вхождения.
func parseIDList(name, value string, warnings *[]string) []int64 {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return nil
	}

	var result []int64
	for _, part := range strings.Split(raw, ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			appendWarningf(warnings, "env %s entry %q is not a valid integer; skipped", name, token)
			continue
		}
		result = append(result, id)
	}
	if result == nil {
		return nil
	}
	return shared.Unique(result)
}

// appendWarningf — служебная функция для накопления предупреждений о некорректных
// переменных окружения. Список затем доступен через Warnings().
func appendWarningf(warnings *[]string, format string, args ...any) {
	if warnings == nil {
		return
	}
	*warnings = append(*warnings, fmt.Sprintf(format, args...))
}

// greaterThanZero / nonNegative — простые валидаторы чисел. Используются в
// parseIntDefault, чтобы навязать смысловые ограничения без падения приложения.
func greaterThanZero(v int) bool { return v > 0 }
func nonNegative(v int) bool     { return v >= 0 }

// sanitizeLogLevel нормализует уровень логирования и ограничивает значения
// набором {debug, info, warn, error}. Всё остальное превращается в defaultVal.
func sanitizeLogLevel(name, level, defaultVal string, warnings *[]string) string {
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		appendWarningf(warnings, "env %s is not set; using default %q", name, defaultVal)
		return defaultVal
	}
	switch lvl {
	case "debug", "info", "warn", "error":
		return lvl
	default:
		appendWarningf(warnings, "env %s value %q is invalid; using default %q", name, level, defaultVal)
		return defaultVal
	}
}

// sanitizeShortener выбирает провайдера сокращателя ссылок. Некорректные
// значения приводятся к defaultShortener с записью предупреждения.
func sanitizeShortener(value string, warnings *[]string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		appendWarningf(warnings, "env SHORTENER is not set; using default %q", defaultShortener)
		return defaultShortener
	}
	switch v {
	case "none", "tinyurl", "isgd", "custom":
		return v
	default:
		appendWarningf(warnings, "env SHORTENER value %q is invalid; using default %q", value, defaultShortener)
		return defaultShortener
	}
}

// sanitizeStoreDriver выбирает бэкенд хранилища записей (bolt|mongo).
func sanitizeStoreDriver(value string, warnings *[]string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		appendWarningf(warnings, "env STORE_DRIVER is not set; using default %q", defaultStoreDriver)
		return defaultStoreDriver
	}
	switch v {
	case "bolt", "mongo":
		return v
	default:
		appendWarningf(warnings, "env STORE_DRIVER value %q is invalid; using default %q", value, defaultStoreDriver)
		return defaultStoreDriver
	}
}

// sanitizeFile возвращает валидное строковое значение конфигурации. Если
// переменная не задана, подставляет fallback и пишет предупреждение.
func sanitizeFile(name, value, fallback string, warnings *[]string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		appendWarningf(warnings, "env %s is not set; using default %q", name, fallback)
		return fallback
	}
	return v
}
