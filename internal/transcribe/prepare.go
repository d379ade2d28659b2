package transcribe

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/yourusername/voice-forge/internal/media"
)

// PrepareJob はアップロードされたファイルを検証し、ジョブの
// ワークスペースへ取り込んでマニフェストを返します。
// ここでは拡張子と内容のMIMEだけを確認し、再生時間などの詳細な
// 検査はワーカー側の Probe に任せます。
func (s *Service) PrepareJob(ctx context.Context, file *multipart.FileHeader, owner string) (*JobManifest, error) {
	if file == nil || file.Filename == "" {
		return nil, newError(CodeInvalidInput, "ファイルが指定されていません。", nil)
	}
	if !media.IsSupported(file.Filename) {
		return nil, newError(CodeUnsupportedMedia, "対応していないファイル形式です。", nil)
	}

	src, err := file.Open()
	if err != nil {
		return nil, newError(CodeInvalidInput, "アップロードファイルを開けませんでした。", err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return nil, newError(CodeInvalidInput, "ファイル内容を確認できませんでした。", err)
	}
	if !isMediaMIME(mtype.String()) {
		return nil, newError(CodeUnsupportedMedia,
			fmt.Sprintf("音声・動画ファイルではありません: %s", mtype.String()), nil)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, newError(CodeInternal, "アップロードファイルの読み直しに失敗しました。", err)
	}

	jobID := uuid.New().String()
	ws, err := s.createWorkspace(jobID)
	if err != nil {
		return nil, newError(CodeInternal, "作業ディレクトリの作成に失敗しました。", err)
	}

	storedName := "source" + strings.ToLower(filepath.Ext(file.Filename))
	written, err := copyToFile(filepath.Join(ws.inDir, storedName), src)
	if err != nil {
		_ = removeDir(ws.dir)
		return nil, newError(CodeInternal, "ファイルの保存に失敗しました。", err)
	}

	manifest := &JobManifest{
		JobID:      jobID,
		Owner:      owner,
		SourceName: filepath.Base(file.Filename),
		SourceFile: storedName,
		SourceSize: written,
		CreatedAt:  time.Now(),
	}
	if err := writeManifest(ws, manifest); err != nil {
		_ = removeDir(ws.dir)
		return nil, newError(CodeInternal, "ジョブ情報の保存に失敗しました。", err)
	}

	return manifest, nil
}

func copyToFile(dstPath string, src io.Reader) (int64, error) {
	dst, err := os.Create(dstPath)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	return written, err
}

func isMediaMIME(mime string) bool {
	return strings.HasPrefix(mime, "audio/") ||
		strings.HasPrefix(mime, "video/") ||
		mime == "application/ogg"
}
