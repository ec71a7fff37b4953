// Package secrets encrypts small blobs (stored credentials) with a
// passphrase. Keys are derived with scrypt and data is sealed with
// AES-256-GCM; the output layout is salt || nonce || ciphertext.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLen = 16
	keyLen  = 32

	// scrypt cost parameters
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// ErrDecrypt covers every decryption failure: wrong passphrase, truncated
// input, or tampered ciphertext. The causes are indistinguishable by design.
var ErrDecrypt = errors.New("cannot decrypt: wrong passphrase or corrupted data")

// Encrypt seals plaintext under the passphrase.
func Encrypt(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	gcm, err := sealer(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	out := make([]byte, 0, saltLen+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// Decrypt opens data produced by Encrypt.
func Decrypt(passphrase string, data []byte) ([]byte, error) {
	if len(data) < saltLen {
		return nil, ErrDecrypt
	}
	salt, rest := data[:saltLen], data[saltLen:]

	gcm, err := sealer(passphrase, salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func sealer(passphrase string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// File is an encrypted JSON document on disk.
type File struct {
	Path       string
	Passphrase string
}

// Exists reports whether the encrypted file is present.
func (f *File) Exists() bool {
	_, err := os.Stat(f.Path)
	return err == nil
}

// Store marshals v and writes it encrypted, owner-readable only.
func (f *File) Store(v any) error {
	plain, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding secret: %w", err)
	}
	sealed, err := Encrypt(f.Passphrase, plain)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("secret dir: %w", err)
	}
	if err := os.WriteFile(f.Path, sealed, 0o600); err != nil {
		return fmt.Errorf("writing secret: %w", err)
	}
	return nil
}

// Load decrypts the file into v.
func (f *File) Load(v any) error {
	sealed, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("reading secret: %w", err)
	}
	plain, err := Decrypt(f.Passphrase, sealed)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return fmt.Errorf("decoding secret: %w", err)
	}
	return nil
}
