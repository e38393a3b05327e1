package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-r string     database driver (sqlite or pgx)
//	-d string     database DSN
//	-m string     master password
//	-s string     encryption salt
//	-l string     log format (json, text or zap)
//	-w string     reminder webhook URL
//	-t duration   webhook timeout
//	-i string     TOTP issuer
//	-u int        external id of the console user
//
// os.Args is filtered with flagx.FilterArgs first, so subcommand names and
// flags owned by other components are ignored.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-d", "-m", "-s", "-l", "-w", "-t", "-i", "-u"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDriver, "r", config.DatabaseDriver, "database driver (sqlite or pgx)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MasterPassword, "m", config.MasterPassword, "master password")
	fs.StringVar(&config.EncryptionSalt, "s", config.EncryptionSalt, "encryption salt")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (json, text or zap)")
	fs.StringVar(&config.WebhookURL, "w", config.WebhookURL, "reminder webhook URL")
	fs.DurationVar(&config.WebhookTimeout, "t", config.WebhookTimeout, "webhook timeout")
	fs.StringVar(&config.TOTPIssuer, "i", config.TOTPIssuer, "TOTP issuer")
	fs.Int64Var(&config.ConsoleUserID, "u", config.ConsoleUserID, "external id of the console user")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
