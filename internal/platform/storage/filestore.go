package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrTooLarge はアップロードが上限を超えた場合のエラーです。
	ErrTooLarge = errors.New("storage: file too large")
	// ErrInvalidKind は未知のファイル種別です。
	ErrInvalidKind = errors.New("storage: invalid kind")
	// ErrInvalidRef は不正な参照です。
	ErrInvalidRef = errors.New("storage: invalid ref")
)

const defaultMaxBytes = 5 << 20

var allowedKinds = map[string]struct{}{
	"resume": {},
	"photo":  {},
	"logo":   {},
}

// FileStore はローカルディスクにファイルを保存します。
// 参照は "<kind>/<uuid><ext>" の形式で、元のファイル名は拡張子以外使いません。
type FileStore struct {
	dir      string
	maxBytes int64
}

// NewFileStore は FileStore を生成します。
func NewFileStore(dir string, maxBytes int64) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage: dir is required")
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	return &FileStore{dir: dir, maxBytes: maxBytes}, nil
}

// Save は r の内容を保存して参照を返します。上限を超えた場合は何も残しません。
func (s *FileStore) Save(ctx context.Context, kind, filename string, r io.Reader) (string, error) {
	if _, ok := allowedKinds[kind]; !ok {
		return "", fmt.Errorf("%q: %w", kind, ErrInvalidKind)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 {
		ext = ""
	}
	ref := path.Join(kind, uuid.NewString()+ext)

	dir := filepath.Join(s.dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(r, s.maxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("storage: write: %w", err)
	}
	if n > s.maxBytes {
		return "", ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), s.resolve(ref)); err != nil {
		return "", fmt.Errorf("storage: rename: %w", err)
	}
	return ref, nil
}

// Remove は参照先のファイルを削除します。存在しない場合は何もしません。
func (s *FileStore) Remove(ref string) error {
	if !validRef(ref) {
		return fmt.Errorf("%q: %w", ref, ErrInvalidRef)
	}
	if err := os.Remove(s.resolve(ref)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove: %w", err)
	}
	return nil
}

// Open は参照先のファイルを開きます。
func (s *FileStore) Open(ref string) (io.ReadCloser, error) {
	if !validRef(ref) {
		return nil, fmt.Errorf("%q: %w", ref, ErrInvalidRef)
	}
	f, err := os.Open(s.resolve(ref))
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	return f, nil
}

func (s *FileStore) resolve(ref string) string {
	return filepath.Join(s.dir, filepath.FromSlash(ref))
}

func validRef(ref string) bool {
	kind, name, ok := strings.Cut(ref, "/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return false
	}
	_, known := allowedKinds[kind]
	return known
}
