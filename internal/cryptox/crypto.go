// Package cryptox implements the note encryption box: a PBKDF2-SHA512 derived
// key held in memory and AES-256-GCM sealing of opaque payloads.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyIterations is the PBKDF2 work factor.
	KeyIterations = 480_000
	// KeySize selects AES-256.
	KeySize = 32
)

var ErrEmptySecret = errors.New("master secret and salt must not be empty")

// DeriveKey stretches the master secret with salt into a KeySize-byte key.
func DeriveKey(secret, salt []byte) []byte {
	return pbkdf2.Key(secret, salt, KeyIterations, KeySize, sha512.New)
}

// Box encrypts and decrypts payloads with a key derived once at construction.
// A Box is immutable after NewBox and safe for concurrent use.
//
// Ciphertext layout is nonce || sealed, where sealed carries the GCM tag, so
// any modified byte makes Decrypt fail. There is no key versioning: a
// different master secret or salt cannot open previously stored data.
type Box struct {
	aead cipher.AEAD
}

// NewBox derives the key from secret and salt and prepares the AEAD.
func NewBox(secret, salt []byte) (*Box, error) {
	if len(secret) == 0 || len(salt) == 0 {
		return nil, ErrEmptySecret
	}

	key := DeriveKey(secret, salt)
	defer common.WipeByteArray(key)

	return newBoxWithKey(key)
}

func newBoxWithKey(key []byte) (*Box, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Box{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (b *Box) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := common.GenerateRandByteArray(b.aead.NonceSize())

	out := make([]byte, 0, len(nonce)+len(plaintext)+b.aead.Overhead())
	out = append(out, nonce...)
	return b.aead.Seal(out, nonce, plaintext, nil), nil
}

// Decrypt opens a payload produced by Encrypt. Truncated, tampered or
// foreign-key input fails with common.ErrDecryption.
func (b *Box) Decrypt(ciphertext []byte) ([]byte, error) {
	ns := b.aead.NonceSize()
	if len(ciphertext) < ns+b.aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrDecryption)
	}

	plaintext, err := b.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDecryption, err)
	}
	return plaintext, nil
}
