// Package cipher provides deterministic key derivation and AES-256-GCM
// authenticated encryption for the msgist wire packet format.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

// NonceSize is the length in bytes of an AES-GCM nonce used by Cipher.
const NonceSize = 12

var (
	// ErrCipherNotInitialized is returned when encrypt/decrypt is attempted
	// before New has produced a usable instance.
	ErrCipherNotInitialized = errors.New("cipher: not initialized")

	// ErrInvalidNonceLength is returned when a nonce other than NonceSize
	// bytes is passed to Decrypt.
	ErrInvalidNonceLength = errors.New("cipher: invalid nonce length")
)

// Cipher derives a symmetric key from a user-supplied passphrase and
// performs authenticated encryption/decryption of payload bytes. It is
// immutable after construction and safe for concurrent use.
type Cipher struct {
	aead       cipher.AEAD
	passphrase string
}

// New derives a 32-byte key as sha256(utf8(passphrase)) and builds an
// AES-256-GCM AEAD over it. The original passphrase is retained so callers
// (the wire package, for room-id derivation) don't need to carry it
// separately.
func New(passphrase string) (*Cipher, error) {
	sum := sha256.Sum256([]byte(passphrase))

	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, fmt.Errorf("cipher: build AES block: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher: build GCM: %w", err)
	}

	return &Cipher{aead: aead, passphrase: passphrase}, nil
}

// Passphrase returns the original passphrase used to derive the key. It is
// consumed by room-id derivation (wire.RoomID), which mixes the raw
// passphrase into the UUIDv5 name per spec, not the derived key.
func (c *Cipher) Passphrase() string {
	if c == nil {
		return ""
	}
	return c.passphrase
}

// NewNonce returns NonceSize cryptographically random bytes suitable for a
// single Encrypt call. Nonces must never be reused under the same key.
func (c *Cipher) NewNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cipher: generate nonce: %w", err)
	}
	return nonce, nil
}

// Encrypt seals plaintext under nonce, returning ciphertext with the GCM
// authentication tag appended. nonce must be NonceSize bytes and must be
// fresh for every call.
func (c *Cipher) Encrypt(nonce, plaintext []byte) ([]byte, error) {
	if c == nil || c.aead == nil {
		return nil, ErrCipherNotInitialized
	}
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceLength
	}
	return c.aead.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext that was sealed with Encrypt under the same
// nonce. Authentication failure (wrong key, tampered ciphertext, or a
// nonce/ciphertext mismatch) is reported as a plain error; callers that
// need the CipherError taxonomy distinction wrap this at a higher layer.
func (c *Cipher) Decrypt(nonce, ciphertext []byte) ([]byte, error) {
	if c == nil || c.aead == nil {
		return nil, ErrCipherNotInitialized
	}
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceLength
	}
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cipher: authentication failed: %w", err)
	}
	return plaintext, nil
}
