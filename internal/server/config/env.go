package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
	"github.com/joho/godotenv"
)

const envPrefix = "NOTEKEEPER_"

// parseEnv loads the dotenv file named by -env (or ./.env when present)
// into the process environment, then reads NOTEKEEPER_* variables. Values
// already in the environment win over the dotenv file.
func parseEnv(config *Config) error {
	if path := flagx.EnvFileFlag(); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}
	str("DATABASE_DRIVER", &config.DatabaseDriver)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("MASTER_PASSWORD", &config.MasterPassword)
	str("ENCRYPTION_SALT", &config.EncryptionSalt)
	str("LOG_FORMAT", &config.LogFormat)
	str("WEBHOOK_URL", &config.WebhookURL)
	str("TOTP_ISSUER", &config.TOTPIssuer)
	str("DEFAULT_LANGUAGE", &config.DefaultLanguage)

	if v, ok := os.LookupEnv(envPrefix + "WEBHOOK_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sWEBHOOK_TIMEOUT: %w", envPrefix, err)
		}
		config.WebhookTimeout = d
	}
	if v, ok := os.LookupEnv(envPrefix + "CONSOLE_USER_ID"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sCONSOLE_USER_ID: %w", envPrefix, err)
		}
		config.ConsoleUserID = id
	}
	return nil
}
