package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"medflow/internal/medical"
)

const Prefix = "MEDFLOW"

type Config struct {
	Port          string   `envconfig:"PORT" default:"8080"`
	LogLevel      string   `envconfig:"LOG_LEVEL" default:"info"`
	DelayScale    float64  `envconfig:"DELAY_SCALE" default:"1"`
	KnowledgePath string   `envconfig:"KNOWLEDGE_PATH"`
	CORSOrigins   []string `envconfig:"CORS_ORIGINS" default:"*"`

	// Doctor report delivery; disabled while the token is empty.
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	DoctorChatID     int64  `envconfig:"DOCTOR_CHAT_ID"`
	ReportMinUrgency string `envconfig:"REPORT_MIN_URGENCY" default:"high"`
	FontPath         string `envconfig:"FONT_PATH"`
}

// Load reads an optional .env file and then the MEDFLOW_* environment.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	if _, err := medical.ParseUrgency(c.ReportMinUrgency); err != nil {
		errs = append(errs, fmt.Errorf("report min urgency: %w", err))
	}
	if c.DelayScale < 0 {
		errs = append(errs, fmt.Errorf("delay scale must not be negative, got %v", c.DelayScale))
	}
	if c.TelegramBotToken != "" && c.DoctorChatID == 0 {
		errs = append(errs, errors.New("doctor chat id is required when a telegram bot token is set"))
	}
	return errors.Join(errs...)
}

func (c Config) ReportsEnabled() bool {
	return c.TelegramBotToken != ""
}

// MinUrgency returns the parsed report threshold. Call after Validate.
func (c Config) MinUrgency() medical.Urgency {
	u, err := medical.ParseUrgency(c.ReportMinUrgency)
	if err != nil {
		return medical.UrgencyHigh
	}
	return u
}
