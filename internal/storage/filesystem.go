package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrKeyExists is returned when a write targets a key that is already stored.
	ErrKeyExists = errors.New("storage: key already exists")
	// ErrNotFound is returned when reading a key that was never written.
	ErrNotFound = errors.New("storage: key not found")
	// ErrInvalidSignature rejects tampered or expired presigned URLs.
	ErrInvalidSignature = errors.New("storage: invalid or expired signature")
)

// FileStore persists assets onto the local filesystem. Keys are write-once:
// an existing key is never overwritten.
type FileStore struct {
	basePath   string
	baseURL    string
	signingKey []byte
	now        func() time.Time
}

// Options configures a FileStore.
type Options struct {
	BasePath   string
	BaseURL    string
	SigningKey string
	Now        func() time.Time
}

// NewFileStore initializes a FileStore rooted at opts.BasePath.
func NewFileStore(opts Options) (*FileStore, error) {
	basePath := strings.TrimSpace(opts.BasePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	signingKey := strings.TrimSpace(opts.SigningKey)
	if signingKey == "" {
		return nil, errors.New("storage: signing key is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &FileStore{
		basePath:   basePath,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		signingKey: []byte(signingKey),
		now:        now,
	}, nil
}

// Put stores data under key. Writing an existing key fails with ErrKeyExists.
func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	if s == nil {
		return errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, _, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("storage: ensure directory: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrKeyExists, key)
		}
		return fmt.Errorf("storage: create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(fullPath)
		return fmt.Errorf("storage: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(fullPath)
		return fmt.Errorf("storage: close file: %w", err)
	}
	return nil
}

// Read loads the bytes stored under key.
func (s *FileStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, _, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("storage: read file: %w", err)
	}
	return data, nil
}

// PresignedURL returns a URL granting read access to key until now+ttl.
func (s *FileStore) PresignedURL(key string, ttl time.Duration) (string, error) {
	_, cleanKey, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("key", cleanKey)
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", s.sign(cleanKey, expires))
	return s.baseURL + "?" + q.Encode(), nil
}

// Verify checks a presigned URL's parameters and returns the canonical key.
func (s *FileStore) Verify(key, expires, signature string) (string, error) {
	_, cleanKey, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	exp, err := strconv.ParseInt(strings.TrimSpace(expires), 10, 64)
	if err != nil {
		return "", ErrInvalidSignature
	}
	if s.now().Unix() > exp {
		return "", ErrInvalidSignature
	}
	expected := s.sign(cleanKey, exp)
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return "", ErrInvalidSignature
	}
	return cleanKey, nil
}

func (s *FileStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(key))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *FileStore) resolve(key string) (string, string, error) {
	if s == nil {
		return "", "", errors.New("storage: no store configured")
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(cleanKey)), cleanKey, nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(filepath.FromSlash(key)))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
