// Package credstore persists the session's bearer token on disk.
//
// The store is a single mutable slot: one token at a time, sealed at
// rest with AES-256-GCM under a key derived from a per-install random
// key file. Writes are atomic (write-tmp-fsync-rename) and guarded by
// an in-process mutex plus a cross-process flock, so concurrent
// invocations of the CLI never observe a torn token file.
//
// Platform secure-storage (Keychain, keyring) is the right medium on
// mobile; a sealed 0600 file is the portable equivalent here. A plain
// unencrypted file would not be.
package credstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	tokenFileName = "credential.bin"
	keyFileName   = "credstore.key"
)

// ErrStorage matches any credential storage failure via errors.Is.
var ErrStorage = errors.New("credential storage failure")

// StorageError is returned when the store fails to read, write, or
// delete the token slot.
type StorageError struct {
	// Op is the failing operation: "read", "write", or "remove".
	Op string
	// Err is the underlying failure.
	Err error
}

// Error returns a human-readable description of the storage failure.
func (e *StorageError) Error() string {
	return fmt.Sprintf("credential store %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying failure.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrStorage).
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// Store is a file-backed credential slot rooted at a data directory.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewStore creates a Store rooted at dir. The directory is created on
// first write, not here.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger,
	}
}

// GetToken reads the stored token. An absent token is not an error:
// it returns ("", nil). A token file that exists but cannot be read or
// unsealed is a *StorageError.
func (s *Store) GetToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.tokenPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", &StorageError{Op: "read", Err: err}
	}

	s.warnIfTooOpen(path)

	key, err := s.loadKey()
	if err != nil {
		return "", &StorageError{Op: "read", Err: err}
	}

	token, err := unseal(key, data)
	if err != nil {
		return "", &StorageError{Op: "read", Err: err}
	}
	return token, nil
}

// SetToken seals and stores the token, replacing any previous one.
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return &StorageError{Op: "write", Err: err}
	}

	key, err := s.loadOrCreateKey()
	if err != nil {
		return &StorageError{Op: "write", Err: err}
	}

	sealed, err := seal(key, token)
	if err != nil {
		return &StorageError{Op: "write", Err: err}
	}

	if err := s.writeLocked(sealed); err != nil {
		return &StorageError{Op: "write", Err: err}
	}

	s.logger.Debug("credential stored", "path", s.tokenPath())
	return nil
}

// RemoveToken deletes the stored token and its backup. Removing an
// already-absent token succeeds.
func (s *Store) RemoveToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.tokenPath()); err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "remove", Err: err}
	}
	if err := os.Remove(s.tokenPath() + ".bak"); err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "remove", Err: err}
	}
	s.logger.Debug("credential removed", "path", s.tokenPath())
	return nil
}

// HasToken reports whether a token file exists, without unsealing it.
func (s *Store) HasToken() bool {
	_, err := os.Stat(s.tokenPath())
	return err == nil
}

// writeLocked writes the sealed token under a cross-process flock.
//
// The write sequence is:
//  1. Acquire flock on path+".lock"
//  2. Copy current file to path+".bak" (skipped if no current file)
//  3. Write to path+".tmp" with 0600 permissions
//  4. Fsync the temp file
//  5. Rename path+".tmp" -> path
//  6. Release flock
func (s *Store) writeLocked(data []byte) error {
	path := s.tokenPath()

	lockFile, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lockFile.Close() }()

	if err := flockLock(lockFile.Fd()); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer flockUnlock(lockFile.Fd()) //nolint:errcheck

	// Keep one backup of the sealed slot (ignore error if no current file).
	if currentData, readErr := os.ReadFile(path); readErr == nil {
		if writeErr := os.WriteFile(path+".bak", currentData, 0600); writeErr != nil {
			s.logger.Warn("failed to create backup", "error", writeErr)
		}
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to credential: %w", err)
	}

	// Safety net after rename on platforms where umask widened the mode.
	if err := os.Chmod(path, 0600); err != nil {
		s.logger.Warn("failed to set permissions on credential file", "error", err)
	}
	return nil
}

// warnIfTooOpen logs when the token file is readable by group or other.
// Skipped on Windows where Unix permission bits are not meaningful.
func (s *Store) warnIfTooOpen(path string) {
	if runtime.GOOS == "windows" {
		return
	}
	if info, err := os.Stat(path); err == nil {
		mode := info.Mode().Perm()
		if mode&0077 != 0 {
			s.logger.Warn("credential file has too-open permissions, should be 0600",
				"path", path, "current_mode", fmt.Sprintf("%04o", mode))
		}
	}
}

func (s *Store) tokenPath() string {
	return filepath.Join(s.dir, tokenFileName)
}

func (s *Store) keyPath() string {
	return filepath.Join(s.dir, keyFileName)
}
