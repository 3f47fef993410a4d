package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/cue-club/brackets"
	"github.com/Dosada05/cue-club/cache"
	"github.com/Dosada05/cue-club/storage"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	// Пустой DatabaseURL включает хранение сеток в памяти.
	DatabaseURL       string
	JWTSecretKey      string
	StaffPasswordHash string
	ServerPort        int

	Redis         cache.Options
	BracketTTL    time.Duration
	R2            storage.CloudflareR2UploaderConfig
	CORSOrigins   []string
	Reveal        brackets.RevealConfig
	ShutdownGrace time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Ошибку не считаем фатальной: в проде .env обычно нет.
	_ = godotenv.Load()
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (*Config, error) {
	jwtKey := getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	passwordHash := getenv("STAFF_PASSWORD_HASH")
	if passwordHash == "" {
		return nil, fmt.Errorf("STAFF_PASSWORD_HASH environment variable is not set")
	}

	portStr := getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cfg := &Config{
		DatabaseURL:       getenv("DATABASE_URL"),
		JWTSecretKey:      jwtKey,
		StaffPasswordHash: passwordHash,
		ServerPort:        port,
		Redis: cache.Options{
			URL:      getenv("REDIS_URL"),
			Addr:     getenv("REDIS_ADDR"),
			Username: getenv("REDIS_USERNAME"),
			Password: getenv("REDIS_PASSWORD"),
		},
		R2: storage.CloudflareR2UploaderConfig{
			AccountID:       getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   getenv("R2_PUBLIC_BASE_URL"),
		},
		CORSOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS")),
		Reveal:      brackets.DefaultRevealConfig(),
	}

	if cfg.BracketTTL, err = durationSeconds(getenv, "BRACKET_CACHE_TTL_SECONDS", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = durationSeconds(getenv, "SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second); err != nil {
		return nil, err
	}

	if v := getenv("REVEAL_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid REVEAL_ITERATIONS %q", v)
		}
		cfg.Reveal.Iterations = n
	}
	if v := getenv("REVEAL_PAUSE_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("invalid REVEAL_PAUSE_MS %q", v)
		}
		cfg.Reveal.Pause = time.Duration(ms) * time.Millisecond
	}

	// R2 либо настроен полностью, либо выключен
	if cfg.R2.Enabled() {
		r2 := cfg.R2
		if r2.AccountID == "" || r2.AccessKeyID == "" || r2.SecretAccessKey == "" || r2.BucketName == "" || r2.PublicBaseURL == "" {
			return nil, fmt.Errorf("R2 archive is partially configured: set all R2_* variables or none")
		}
	}

	return cfg, nil
}

func durationSeconds(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return time.Duration(n) * time.Second, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
