package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds configuration for the relay process.
type Config struct {
	TelegramToken        string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAPIURL       string `env:"TG_API_URL" envDefault:"https://api.telegram.org"`
	PollTimeout          int    `env:"TG_TIMEOUT" envDefault:"30"`
	SleepSeconds         int    `env:"TG_SLEEP_SECONDS" envDefault:"1"`
	DropPending          bool   `env:"TG_DROP_PENDING" envDefault:"false"`
	PendingWindowSeconds int64  `env:"TG_PENDING_WINDOW_SECONDS" envDefault:"600"`
	PendingMaxMessages   int    `env:"TG_PENDING_MAX_MESSAGES" envDefault:"50"`

	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1/"`
	OpenAIModel      string        `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAIImageModel string        `env:"OPENAI_IMAGE_MODEL" envDefault:"dall-e-2"`
	OpenAIImageSize  string        `env:"OPENAI_IMAGE_SIZE" envDefault:"1024x1024"`
	OpenAITimeout    time.Duration `env:"OPENAI_TIMEOUT" envDefault:"90s"`

	DBPath       string        `env:"RELAY_DB_PATH" envDefault:"gpt.db"`
	HistoryLimit int           `env:"RELAY_HISTORY_LIMIT" envDefault:"20"`
	TurnTimeout  time.Duration `env:"RELAY_TURN_TIMEOUT" envDefault:"2m"`
	Debug        bool          `env:"RELAY_DEBUG" envDefault:"false"`

	ModelProvider        string `env:"RELAY_MODEL_PROVIDER" envDefault:"openai"`
	Commander            string `env:"RELAY_COMMANDER" envDefault:"telegram"`
	DummyProviderScript  string `env:"RELAY_DUMMY_PROVIDER_SCRIPT" envDefault:"ok"`
	DummyImageScript     string `env:"RELAY_DUMMY_IMAGE_SCRIPT" envDefault:"ok"`
	DummyCommanderScript string `env:"RELAY_DUMMY_COMMANDER_SCRIPT" envDefault:"ok"`
	DummySendScript      string `env:"RELAY_DUMMY_COMMANDER_SEND_SCRIPT" envDefault:"ok"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return Parse()
}

// Parse reads configuration from environment variables only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required secrets and numeric bounds.
func (c Config) Validate() error {
	var errs []error

	switch c.Commander {
	case "telegram":
		if c.TelegramToken == "" {
			errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required in environment when RELAY_COMMANDER=telegram"))
		}
	case "dummy":
	default:
		errs = append(errs, fmt.Errorf("RELAY_COMMANDER must be telegram or dummy, got %q", c.Commander))
	}

	switch c.ModelProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required in environment when RELAY_MODEL_PROVIDER=openai"))
		}
	case "dummy":
	default:
		errs = append(errs, fmt.Errorf("RELAY_MODEL_PROVIDER must be openai or dummy, got %q", c.ModelProvider))
	}

	if c.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("RELAY_HISTORY_LIMIT must be positive, got %d", c.HistoryLimit))
	}
	if c.TurnTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RELAY_TURN_TIMEOUT must be positive, got %s", c.TurnTimeout))
	}
	if c.OpenAITimeout <= 0 {
		errs = append(errs, fmt.Errorf("OPENAI_TIMEOUT must be positive, got %s", c.OpenAITimeout))
	}
	if c.PollTimeout < 0 {
		errs = append(errs, fmt.Errorf("TG_TIMEOUT must not be negative, got %d", c.PollTimeout))
	}
	if c.SleepSeconds <= 0 {
		errs = append(errs, fmt.Errorf("TG_SLEEP_SECONDS must be positive, got %d", c.SleepSeconds))
	}
	if c.PendingMaxMessages <= 0 {
		errs = append(errs, fmt.Errorf("TG_PENDING_MAX_MESSAGES must be positive, got %d", c.PendingMaxMessages))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("RELAY_DB_PATH must not be empty"))
	}
	return errors.Join(errs...)
}
