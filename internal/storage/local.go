package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local はローカルファイルシステム上の BlobStore 実装です。
// 保存先ディレクトリを静的配信することで、認識バックエンドからの
// アクセスを baseURL 経由で受けられるようにします。
type Local struct {
	baseDir string
	baseURL string
}

// NewLocal は Local ストアを作成します。
func NewLocal(baseDir, baseURL string) *Local {
	return &Local{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload はローカルファイルを baseDir/key へコピーし、公開URIを返します。
func (l *Local) Upload(ctx context.Context, localPath string, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateKey(key); err != nil {
		return "", err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	destPath := filepath.Join(l.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create store directory: %w", err)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create store file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		return "", fmt.Errorf("failed to copy into store: %w", err)
	}

	return l.baseURL + "/" + key, nil
}

// Delete は baseDir/key のファイルを削除します。
func (l *Local) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	destPath := filepath.Join(l.baseDir, filepath.FromSlash(key))
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete from store: %w", err)
	}
	return nil
}

// validateKey はストア外へ抜けるキーを拒否します。
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid key: %s", key)
	}
	return nil
}
