package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ObjectStore persists an uploaded object and returns the URL clients use to fetch it.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// LocalStorage persists files on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save writes the given bytes to the provided relative path under the base dir.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return filename, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// resolve keeps every key inside the base directory.
func (s *LocalStorage) resolve(filename string) (string, error) {
	clean := filepath.Clean("/" + filename)
	if clean == "/" {
		return "", fmt.Errorf("empty upload key")
	}
	return filepath.Join(s.baseDir, strings.TrimPrefix(clean, "/")), nil
}

// SignedLocalStore exposes LocalStorage files through signed download links.
type SignedLocalStore struct {
	files   *LocalStorage
	signer  *SignedURLSigner
	baseURL string
}

// NewSignedLocalStore builds a store whose URLs point at baseURL/{key}?token=...
func NewSignedLocalStore(files *LocalStorage, signer *SignedURLSigner, baseURL string) *SignedLocalStore {
	return &SignedLocalStore{files: files, signer: signer, baseURL: strings.TrimRight(baseURL, "/")}
}

// Put saves the object on disk and returns its signed link.
func (s *SignedLocalStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := s.files.Save(key, data); err != nil {
		return "", err
	}
	token, _, err := s.signer.Generate(key, key)
	if err != nil {
		return "", fmt.Errorf("sign upload url: %w", err)
	}
	return fmt.Sprintf("%s/%s?token=%s", s.baseURL, key, url.QueryEscape(token)), nil
}
