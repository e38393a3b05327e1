package authgate

import (
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Verifier creates and checks time-based one-time passwords.
type Verifier interface {
	// NewSecret returns a fresh shared secret and its provisioning URI.
	NewSecret(issuer, account string) (secret, uri string, err error)
	// Validate checks code against secret around at.
	Validate(secret, code string, at time.Time) bool
	// Code returns the code valid at at.
	Code(secret string, at time.Time) (string, error)
	// Period is the lifetime of one code.
	Period() time.Duration
}

// TOTP is the RFC 6238 verifier: 30 second steps, six digits, SHA-1, and
// one step of tolerance either side.
type TOTP struct {
	opts totp.ValidateOpts
}

func NewTOTP() *TOTP {
	return &TOTP{opts: totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}}
}

func (v *TOTP) NewSecret(issuer, account string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      v.opts.Period,
		Digits:      v.opts.Digits,
		Algorithm:   v.opts.Algorithm,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func (v *TOTP) Validate(secret, code string, at time.Time) bool {
	code = strings.TrimSpace(code)
	if len(code) != v.opts.Digits.Length() {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, at.UTC(), v.opts)
	return err == nil && ok
}

func (v *TOTP) Code(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at.UTC(), v.opts)
}

func (v *TOTP) Period() time.Duration {
	return time.Duration(v.opts.Period) * time.Second
}
