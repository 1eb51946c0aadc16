package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the mock interview server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	AI        AIConfig
	Speech    SpeechConfig
	Auth      AuthConfig
	Interview InterviewConfig
}

type ServerConfig struct {
	Port     int
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

type RedisConfig struct {
	URL string
}

type AIConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	Gemini           GeminiConfig
	OpenAI           OpenAIConfig
	Ollama           OllamaConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

// SpeechConfig selects the speech-to-text and text-to-speech backend.
// The gemini backend shares AI.Gemini.APIKey.
type SpeechConfig struct {
	Provider string
	STTModel string
	TTSModel string
	Voice    string
	AudioDir string
	AudioTTL time.Duration
}

type AuthConfig struct {
	JWTSecret     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	BcryptCost    int
	SecureCookies bool
}

type InterviewConfig struct {
	QuestionCount     int
	Difficulty        string
	LockTTL           time.Duration
	LockWait          time.Duration
	RequestsPerMinute int
}

var validProviders = map[string]bool{
	"gemini": true,
	"openai": true,
	"ollama": true,
	"mock":   true,
}

var validSpeechProviders = map[string]bool{
	"gemini": true,
	"mock":   true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     envInt("MOCKINTERVIEW_PORT", 8080),
			Env:      envString("MOCKINTERVIEW_ENV", "development"),
			LogLevel: envString("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsDir:   envString("DATABASE_MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		AI: AIConfig{
			Provider:         os.Getenv("AI_PROVIDER"),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
			Gemini: GeminiConfig{
				APIKey: os.Getenv("GEMINI_API_KEY"),
				Model:  envString("GEMINI_MODEL", "gemini-2.5-flash"),
			},
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
		},
		Speech: SpeechConfig{
			Provider: envString("SPEECH_PROVIDER", "gemini"),
			STTModel: envString("SPEECH_STT_MODEL", "gemini-2.5-flash"),
			TTSModel: envString("SPEECH_TTS_MODEL", "gemini-2.5-flash-preview-tts"),
			Voice:    envString("SPEECH_VOICE", "Kore"),
			AudioDir: envString("SPEECH_AUDIO_DIR", "static/audio"),
			AudioTTL: envDuration("SPEECH_AUDIO_CACHE_TTL", 24*time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("JWT_SECRET"),
			AccessTTL:     envDurationSecs("JWT_ACCESS_TTL_SECS", 15*time.Minute),
			RefreshTTL:    envDurationSecs("JWT_REFRESH_TTL_SECS", 7*24*time.Hour),
			BcryptCost:    envInt("BCRYPT_COST", 12),
			SecureCookies: envBool("AUTH_SECURE_COOKIES", false),
		},
		Interview: InterviewConfig{
			QuestionCount:     envInt("INTERVIEW_QUESTION_COUNT", 5),
			Difficulty:        envString("INTERVIEW_DIFFICULTY", "easy"),
			LockTTL:           envDuration("INTERVIEW_LOCK_TTL", 2*time.Minute),
			LockWait:          envDuration("INTERVIEW_LOCK_WAIT", 5*time.Second),
			RequestsPerMinute: envInt("INTERVIEW_REQUESTS_PER_MINUTE", 60),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of gemini, openai, ollama, mock; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "gemini" && c.AI.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is gemini")
	}
	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	if c.AI.Provider == "ollama" && !isHTTPURL(c.AI.Ollama.BaseURL) {
		return fmt.Errorf("OLLAMA_BASE_URL must start with http:// or https://, got %q", c.AI.Ollama.BaseURL)
	}

	if !validSpeechProviders[c.Speech.Provider] {
		return fmt.Errorf("SPEECH_PROVIDER must be one of gemini, mock; got %q", c.Speech.Provider)
	}
	if c.Speech.Provider == "gemini" && c.AI.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when SPEECH_PROVIDER is gemini")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 && c.Server.Env == "production" {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}

	if c.Interview.QuestionCount <= 0 {
		return fmt.Errorf("INTERVIEW_QUESTION_COUNT must be positive, got %d", c.Interview.QuestionCount)
	}

	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
