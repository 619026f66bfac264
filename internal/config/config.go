// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/satriahrh/soundalike/domain"
)

const (
	STTGoogle  = "google"
	STTWhisper = "whisper"
	STTMock    = "mock"

	StorageMemory = "memory"
	StorageMongo  = "mongo"

	PolicyPresets = "presets"
	PolicyRandom  = "random"
)

type Config struct {
	Port           string
	UploadsDir     string
	MaxUploadBytes int64
	LogLevel       string

	GeminiAPIKey string
	GeminiModel  string

	STTProvider    string
	STTLanguage    string
	WhisperAPIKey  string
	WhisperBaseURL string
	WhisperModel   string

	StorageBackend string
	MongoURI       string
	MongoDatabase  string

	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMultiplier   float64

	VariantPolicy string
	VariantCount  int
	FFmpegPath    string

	JWTSecret string
	JWTTTL    time.Duration
}

// Load reads .env files (missing ones are ignored) and then the process
// environment. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		UploadsDir:     getEnv("UPLOADS_DIR", "uploads"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		STTProvider:    strings.ToLower(getEnv("STT_PROVIDER", STTGoogle)),
		STTLanguage:    getEnv("STT_LANGUAGE", "en-US"),
		WhisperAPIKey:  getEnv("WHISPER_API_KEY", os.Getenv("OPENAI_API_KEY")),
		WhisperBaseURL: os.Getenv("WHISPER_BASE_URL"),
		WhisperModel:   getEnv("WHISPER_MODEL", "whisper-1"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
		MongoURI:       getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnv("MONGODB_DATABASE", "soundalike"),

		RetryMaxAttempts:  getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: getEnvDuration("RETRY_INITIAL_DELAY", time.Second),
		RetryMultiplier:   getEnvFloat("RETRY_MULTIPLIER", 2),

		VariantPolicy: strings.ToLower(getEnv("VARIANT_POLICY", PolicyPresets)),
		VariantCount:  getEnvInt("VARIANT_COUNT", 3),
		FFmpegPath:    getEnv("FFMPEG_PATH", "ffmpeg"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that cannot work. A missing remote credential is
// not an error; it only disables the remote analysis path.
func (c *Config) Validate() error {
	var problems []string

	if c.Port == "" {
		problems = append(problems, "PORT must not be empty")
	}
	if c.UploadsDir == "" {
		problems = append(problems, "UPLOADS_DIR must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		problems = append(problems, "MAX_UPLOAD_BYTES must be positive")
	}
	switch c.STTProvider {
	case STTGoogle, STTWhisper, STTMock:
	default:
		problems = append(problems, fmt.Sprintf("STT_PROVIDER %q is not one of google, whisper, mock", c.STTProvider))
	}
	switch c.StorageBackend {
	case StorageMemory, StorageMongo:
	default:
		problems = append(problems, fmt.Sprintf("STORAGE_BACKEND %q is not one of memory, mongo", c.StorageBackend))
	}
	switch c.VariantPolicy {
	case PolicyPresets, PolicyRandom:
	default:
		problems = append(problems, fmt.Sprintf("VARIANT_POLICY %q is not one of presets, random", c.VariantPolicy))
	}
	if c.VariantCount < 1 {
		problems = append(problems, "VARIANT_COUNT must be at least 1")
	}
	if c.RetryMaxAttempts < 1 {
		problems = append(problems, "RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.RetryInitialDelay <= 0 {
		problems = append(problems, "RETRY_INITIAL_DELAY must be positive")
	}
	if c.RetryMultiplier < 1 {
		problems = append(problems, "RETRY_MULTIPLIER must be at least 1")
	}

	if len(problems) > 0 {
		return domain.NewError(domain.KindConfig, "invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// RemoteConfigured reports whether the credentials for both the
// transcription and the analysis backends are present. The mock provider
// needs none.
func (c *Config) RemoteConfigured() bool {
	if c.STTProvider == STTMock {
		return true
	}
	if c.GeminiAPIKey == "" {
		return false
	}
	if c.STTProvider == STTWhisper {
		return c.WhisperAPIKey != ""
	}
	return true
}

// AuthEnabled reports whether mutating API routes require a bearer token
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("1500ms") or plain milliseconds
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
