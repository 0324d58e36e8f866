// Package securefile seals small payloads to disk with authenticated
// encryption. The key is derived from a master password with Argon2id;
// a fresh random salt and nonce are written into every file, so the
// envelope is self-contained:
//
//	magic(4) || salt(16) || nonce(12) || AES-256-GCM ciphertext
//
// Writes are atomic (temp file + rename) with owner-only permissions.
package securefile

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

// ErrDecryptFailed means the file exists but the supplied password
// cannot authenticate its contents: wrong password, or any modification
// of the ciphertext. Callers must never treat this as an empty file.
var ErrDecryptFailed = errors.New("securefile: decryption failed (wrong password or tampered file)")

var magic = []byte("ZKS1")

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32

	// Argon2id parameters, OWASP baseline.
	argonTime    = 2
	argonMemory  = 19456 // KiB
	argonThreads = 1
)

// DeriveKey derives a 32-byte AES key from a master password and salt.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, keySize)
}

// Seal encrypts plaintext under the password and atomically replaces
// path. A new salt and nonce are generated on every call.
func Seal(path string, password, plaintext []byte) error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	gcm, err := newGCM(DeriveKey(password, salt))
	if err != nil {
		return err
	}

	out := make([]byte, 0, len(magic)+saltSize+nonceSize+len(plaintext)+gcm.Overhead())
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, magic)

	return atomicWrite(path, out)
}

// Open reads and decrypts path. A missing file surfaces as
// fs.ErrNotExist so callers can tell "first run" apart from "wrong
// password", which surfaces as ErrDecryptFailed.
func Open(path string, password []byte) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	header := len(magic) + saltSize + nonceSize
	if len(data) < header || string(data[:len(magic)]) != string(magic) {
		return nil, ErrDecryptFailed
	}
	salt := data[len(magic) : len(magic)+saltSize]
	nonce := data[len(magic)+saltSize : header]

	gcm, err := newGCM(DeriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, data[header:], magic)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return gcm, nil
}

// atomicWrite writes data to a temp file in the target directory and
// renames it over path, so an interrupted save never leaves a torn file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
