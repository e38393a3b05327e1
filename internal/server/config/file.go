package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
	"github.com/dmitrijs2005/notekeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. timex.Duration
// accepts both "10s" and integer nanoseconds. Zero values leave the
// corresponding setting untouched.
type FileConfig struct {
	DatabaseDriver  string         `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN     string         `json:"database_dsn" yaml:"database_dsn"`
	MasterPassword  string         `json:"master_password" yaml:"master_password"`
	EncryptionSalt  string         `json:"encryption_salt" yaml:"encryption_salt"`
	LogFormat       string         `json:"log_format" yaml:"log_format"`
	WebhookURL      string         `json:"webhook_url" yaml:"webhook_url"`
	WebhookTimeout  timex.Duration `json:"webhook_timeout" yaml:"webhook_timeout"`
	TOTPIssuer      string         `json:"totp_issuer" yaml:"totp_issuer"`
	ConsoleUserID   int64          `json:"console_user_id" yaml:"console_user_id"`
	DefaultLanguage string         `json:"default_language" yaml:"default_language"`
}

// parseFile overlays the file named by -c/-config. Files ending in .yaml
// or .yml are read as YAML, everything else as JSON.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&config.DatabaseDriver, c.DatabaseDriver)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.MasterPassword, c.MasterPassword)
	set(&config.EncryptionSalt, c.EncryptionSalt)
	set(&config.LogFormat, c.LogFormat)
	set(&config.WebhookURL, c.WebhookURL)
	set(&config.TOTPIssuer, c.TOTPIssuer)
	set(&config.DefaultLanguage, c.DefaultLanguage)

	if c.WebhookTimeout.Duration != 0 {
		config.WebhookTimeout = c.WebhookTimeout.Duration
	}
	if c.ConsoleUserID != 0 {
		config.ConsoleUserID = c.ConsoleUserID
	}
}
