package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
	Telnyx    Telnyx    `yaml:"telnyx"`
	OpenAI    OpenAI    `yaml:"openai"`
	Screening Screening `yaml:"screening"`
}

type Server struct {
	// Listen address of the webhook server
	Addr string `yaml:"addr" example:":5000"`
}

type Telnyx struct {
	// Telnyx API v2 token
	APIKey string `yaml:"api_key" example:"KEY0123456789ABCDEF" validate:"required"`
	// Number the screener answers on, E.164
	Number string `yaml:"number" example:"+16159495810" validate:"required"`
	// Subscriber's real number, never revealed to callers
	SubscriberNumber string `yaml:"subscriber_number" example:"+16155550123" validate:"required"`
}

type OpenAI struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// OpenAI model
	Model string `yaml:"model" example:"gpt-4o-mini" validate:"required"`
}

type Screening struct {
	// Subscriber's display name, used in prompts and briefings
	SubscriberName string `yaml:"subscriber_name" example:"Scott Lumley" validate:"required"`
	// Assistant's name, used in greetings
	AssistantName string `yaml:"assistant_name" example:"ARIA"`
	// Max conversational turns advised to the decision model
	MaxTurns int `yaml:"max_turns" example:"8"`
	// Local timezone for quiet hours and digests
	Timezone string `yaml:"timezone" example:"America/Chicago"`
	// Quiet hours window, local hours; wrap-around supported
	QuietStartHour int `yaml:"quiet_start_hour" example:"21"`
	QuietEndHour   int `yaml:"quiet_end_hour" example:"7"`
	// Seconds a relayed caller may hold before auto-voicemail; 0 disables
	RelayHoldTimeoutSec int `yaml:"relay_hold_timeout_sec" example:"180"`
	// Local hour at which the daily digest is sent; -1 disables
	DigestHour int `yaml:"digest_hour" example:"20"`
}

type Log struct {
	// Console log level: debug, info, warn or error
	Level string `yaml:"level" example:"info" validate:"omitempty,oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if v := os.Getenv("TELNYX_API_KEY"); v != "" {
		result.Telnyx.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		result.OpenAI.Token = v
	}

	result.applyDefaults()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if c.Log.Level == "" {
		c.Log.Level = "debug"
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Screening.AssistantName == "" {
		c.Screening.AssistantName = "ARIA"
	}
	if c.Screening.MaxTurns == 0 {
		c.Screening.MaxTurns = 8
	}
	if c.Screening.Timezone == "" {
		c.Screening.Timezone = "America/Chicago"
	}
	if c.Screening.QuietStartHour == 0 && c.Screening.QuietEndHour == 0 {
		c.Screening.QuietStartHour = 21
		c.Screening.QuietEndHour = 7
	}
	if c.Screening.DigestHour == 0 {
		c.Screening.DigestHour = 20
	}
}
