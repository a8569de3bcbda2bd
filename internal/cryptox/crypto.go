// Package cryptox provides the optional symmetric cryptor applied to
// attachment bytes on their way to and from the remote store.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/chatattach/internal/common"
	"golang.org/x/crypto/argon2"
)

// Cryptor encrypts outgoing attachment bytes and decrypts downloaded ones.
type Cryptor interface {
	Encrypt(plain []byte) ([]byte, error)
	Decrypt(cipherText []byte) ([]byte, error)
}

// Nop is the pass-through Cryptor used when encryption is not configured.
type Nop struct{}

func (Nop) Encrypt(plain []byte) ([]byte, error)      { return plain, nil }
func (Nop) Decrypt(cipherText []byte) ([]byte, error) { return cipherText, nil }

const nonceSize = 12

var ErrShortCiphertext = errors.New("ciphertext shorter than nonce")

// AESCryptor is an AES-GCM Cryptor. The random 12-byte nonce is prepended to
// each ciphertext, so the output is self-contained.
type AESCryptor struct {
	aead        cipher.AEAD
	fingerprint []byte
}

// NewAESCryptor builds a cryptor from a 16, 24 or 32 byte key.
func NewAESCryptor(key []byte) (*AESCryptor, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &AESCryptor{aead: aesgcm, fingerprint: KeyFingerprint(key)}, nil
}

// Fingerprint identifies the key without revealing it: the hex of the first
// 8 bytes of KeyFingerprint.
func (c *AESCryptor) Fingerprint() string {
	return hex.EncodeToString(c.fingerprint[:8])
}

// NewPassphraseCryptor derives an AES-256 key from passphrase and salt with
// DeriveMasterKey.
func NewPassphraseCryptor(passphrase, salt []byte) (*AESCryptor, error) {
	key := DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(key)
	return NewAESCryptor(key)
}

func (c *AESCryptor) Encrypt(plain []byte) ([]byte, error) {
	nonce := common.GenerateRandByteArray(nonceSize)

	out := make([]byte, 0, nonceSize+len(plain)+c.aead.Overhead())
	out = append(out, nonce...)
	return c.aead.Seal(out, nonce, plain, nil), nil
}

func (c *AESCryptor) Decrypt(cipherText []byte) ([]byte, error) {
	if len(cipherText) < nonceSize {
		return nil, ErrShortCiphertext
	}
	nonce, body := cipherText[:nonceSize], cipherText[nonceSize:]

	plain, err := c.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, err
	}
	return plain, nil
}

// DeriveMasterKey stretches a passphrase into a 32-byte key with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// KeyFingerprint returns a SHA-256 digest of key, safe to log or persist for
// "is this the same key" checks.
func KeyFingerprint(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}
