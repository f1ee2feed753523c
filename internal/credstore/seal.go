package credstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/hkdf"
)

// masterKeySize is the size of the random per-install master key file.
const masterKeySize = 32

// loadKey reads the master key file and derives the sealing key.
func (s *Store) loadKey() ([]byte, error) {
	master, err := os.ReadFile(s.keyPath())
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return deriveSealKey(master)
}

// loadOrCreateKey returns the sealing key, generating the master key
// file on first use.
func (s *Store) loadOrCreateKey() ([]byte, error) {
	master, err := os.ReadFile(s.keyPath())
	if os.IsNotExist(err) {
		master = make([]byte, masterKeySize)
		if _, err := io.ReadFull(rand.Reader, master); err != nil {
			return nil, fmt.Errorf("generate master key: %w", err)
		}
		if err := os.WriteFile(s.keyPath(), master, 0600); err != nil {
			return nil, fmt.Errorf("write key file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return deriveSealKey(master)
}

// deriveSealKey derives the AES-256 sealing key from the master key
// using HKDF-SHA256. Deriving rather than using the master directly
// leaves room for additional keys under the same master.
func deriveSealKey(master []byte) ([]byte, error) {
	if len(master) < masterKeySize {
		return nil, errors.New("master key too short")
	}
	h := hkdf.New(sha256.New, master, nil, []byte("fittrack-token-seal"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("derive seal key: %w", err)
	}
	return key, nil
}

// seal encrypts the token with AES-256-GCM. Output is nonce||ciphertext.
func seal(key []byte, token string) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, []byte(token), nil), nil
}

// unseal decrypts a nonce||ciphertext payload produced by seal.
func unseal(key, data []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", errors.New("sealed payload too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("unseal token: %w", err)
	}
	return string(plain), nil
}
