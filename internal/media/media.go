// Package media はFFmpeg/FFprobeによる入力ファイルの検査と音声変換を提供します。
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrUnreadable は入力ファイルを解析できない場合のエラーです。
var ErrUnreadable = errors.New("unreadable media")

// ErrTranscode は音声変換に失敗した場合のエラーです。
var ErrTranscode = errors.New("transcode failed")

// 対応する拡張子の一覧。
var (
	supportedAudioExtensions = map[string]bool{
		".ogg": true, ".mp3": true, ".wav": true, ".flac": true, ".m4a": true,
	}
	supportedVideoExtensions = map[string]bool{
		".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".webm": true,
	}
)

// IsVideo は拡張子から動画ファイルかどうかを判定します。
func IsVideo(path string) bool {
	return supportedVideoExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsAudio は拡張子から音声ファイルかどうかを判定します。
func IsAudio(path string) bool {
	return supportedAudioExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsSupported は対応形式の拡張子かどうかを判定します。
func IsSupported(path string) bool {
	return IsAudio(path) || IsVideo(path)
}

// runCommand は外部コマンドを実行し、標準出力を返します。
// 失敗時には標準エラー出力をエラーメッセージへ含めます。
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, msg)
	}
	return stdout.Bytes(), nil
}
