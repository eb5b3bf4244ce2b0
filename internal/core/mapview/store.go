package mapview

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FilePattern は地図ドキュメントの一時ファイル名パターン
const FilePattern = "proplens-map-*.html"

// Store は地図ドキュメントを一意な一時ファイルとして書き出し、古いファイルを掃除する
type Store struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// StoreOption は Store の生成オプション
type StoreOption func(*Store)

// WithStoreLogger は Store にロガーを設定する
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore は dir 配下に地図ファイルを置く Store を作成する
// dir が空の場合はOSの一時ディレクトリを使用する
func NewStore(dir string, opts ...StoreOption) *Store {
	if dir == "" {
		dir = os.TempDir()
	}
	s := &Store{
		dir:    dir,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Dir は地図ファイルの保存先ディレクトリを返す
func (s *Store) Dir() string {
	return s.dir
}

// Write は地図ドキュメントを一時ファイルに書き出し、その絶対パスを返す
func (s *Store) Write(doc MapDocument) (string, error) {
	f, err := os.CreateTemp(s.dir, FilePattern)
	if err != nil {
		return "", fmt.Errorf("failed to create map file: %w", err)
	}

	if _, err := f.WriteString(doc.HTML); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write map file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close map file: %w", err)
	}

	path, err := filepath.Abs(f.Name())
	if err != nil {
		return f.Name(), nil
	}

	s.logger.Debug("map file written", "path", path, "markers", doc.Markers)
	return path, nil
}

// Sweep は olderThan より古い地図ファイルを削除し、削除した件数を返す
// olderThan が0以下の場合はすべての地図ファイルを削除する
func (s *Store) Sweep(olderThan time.Duration) (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, FilePattern))
	if err != nil {
		return 0, fmt.Errorf("failed to list map files: %w", err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	var errs []error

	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				errs = append(errs, err)
			}
			continue
		}
		if info.IsDir() {
			continue
		}
		if olderThan > 0 && info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", path, err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("stale map files removed", "count", removed, "dir", s.dir)
	}

	return removed, errors.Join(errs...)
}
