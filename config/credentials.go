package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Credentials carries every secret the process reads from the environment.
// None of them belong in the YAML file.
type Credentials struct {
	GFDLAPIKey       string `envconfig:"GFDL_API_KEY"`
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	AWSAccessKeyID   string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey     string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion        string `envconfig:"AWS_REGION"`
	S3Bucket         string `envconfig:"S3_BUCKET"`
}

func loadCredentials() (*Credentials, error) {
	var creds Credentials
	if err := envconfig.Process("", &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// applyCredentials overrides config values with environment-supplied
// secrets. Environment wins over the file so deployments never need
// plaintext keys in YAML.
func applyCredentials(cfg *Config, creds *Credentials) {
	if v := strings.TrimSpace(creds.GFDLAPIKey); v != "" {
		cfg.Feed.APIKey = v
	}
	if v := strings.TrimSpace(creds.TelegramBotToken); v != "" {
		cfg.Telegram.BotToken = v
	}
	if cfg.Storage.S3.Enabled {
		if v := strings.TrimSpace(creds.AWSAccessKeyID); v != "" {
			cfg.Storage.S3.AccessKeyID = v
		}
		if v := strings.TrimSpace(creds.AWSSecretKey); v != "" {
			cfg.Storage.S3.SecretAccessKey = v
		}
		if v := strings.TrimSpace(creds.AWSRegion); v != "" {
			cfg.Storage.S3.Region = v
		}
		if v := strings.TrimSpace(creds.S3Bucket); v != "" {
			cfg.Storage.S3.Bucket = v
		}
	}
}
