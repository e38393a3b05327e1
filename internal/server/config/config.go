// Package config handles configuration for the server component: defaults,
// a dotenv file and NOTEKEEPER_* environment variables, a JSON or YAML file,
// and command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/database"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

// Config holds runtime settings for the notekeeper server.
//
// MasterPassword and EncryptionSalt derive the note encryption key. They
// have no defaults; changing either makes stored notes unreadable.
type Config struct {
	DatabaseDriver  string
	DatabaseDSN     string
	MasterPassword  string
	EncryptionSalt  string
	LogFormat       string
	WebhookURL      string
	WebhookTimeout  time.Duration
	TOTPIssuer      string
	ConsoleUserID   int64
	DefaultLanguage string
}

var (
	ErrNoMasterPassword = errors.New("master password is not set")
	ErrNoEncryptionSalt = errors.New("encryption salt is not set")
)

// LoadDefaults populates Config with development defaults. Secrets are left
// empty on purpose so that Validate rejects a run without them.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = database.SQLite.Driver
	c.DatabaseDSN = "data/notekeeper.db"
	c.LogFormat = logging.FormatText
	c.WebhookTimeout = 10 * time.Second
	c.TOTPIssuer = "RecoNotas"
	c.ConsoleUserID = 1
	c.DefaultLanguage = models.DefaultLanguage
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.MasterPassword == "" {
		errs = append(errs, ErrNoMasterPassword)
	}
	if c.EncryptionSalt == "" {
		errs = append(errs, ErrNoEncryptionSalt)
	}
	if _, err := database.DialectFor(c.DatabaseDriver); err != nil {
		errs = append(errs, err)
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN is not set"))
	}
	switch c.LogFormat {
	case logging.FormatJSON, logging.FormatText, logging.FormatZap:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if !slices.Contains(models.SupportedLanguages, c.DefaultLanguage) {
		errs = append(errs, fmt.Errorf("unsupported default language %q", c.DefaultLanguage))
	}
	if c.ConsoleUserID == 0 {
		errs = append(errs, errors.New("console user id must not be 0"))
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then the environment,
// then an optional config file and finally command-line flags. The result
// is not validated.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFile(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
