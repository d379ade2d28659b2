package media

import (
	"context"
	"fmt"
	"strconv"
)

// 認識バックエンドが要求する正規化フォーマット（OGG OPUS 48kHz モノラル）。
const (
	targetCodec      = "libopus"
	targetSampleRate = "48000"
	targetChannels   = "1"
	targetBitrate    = "64k"
)

// Transcoder はFFmpegで音声を正規化フォーマットへ変換します。
type Transcoder struct {
	ffmpegPath string
}

// NewTranscoder は Transcoder を作成します。
func NewTranscoder(ffmpegPath string) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Transcoder{ffmpegPath: ffmpegPath}
}

// Transcode は入力の [startOffset, startOffset+duration) 区間から
// 音声トラックのみを抽出し、OGG OPUSとして outputPath へ書き出します。
func (t *Transcoder) Transcode(ctx context.Context, inputPath, outputPath string, startOffset, duration float64) error {
	args := transcodeArgs(inputPath, outputPath, startOffset, duration)
	if _, err := runCommand(ctx, t.ffmpegPath, args...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrTranscode, err)
	}
	return nil
}

// transcodeArgs はffmpegの引数リストを組み立てます。
func transcodeArgs(inputPath, outputPath string, startOffset, duration float64) []string {
	args := []string{"-y"}
	// -ss/-t は -i より前に置き、入力側でシークさせる
	if startOffset > 0 {
		args = append(args, "-ss", formatSeconds(startOffset))
	}
	if duration > 0 {
		args = append(args, "-t", formatSeconds(duration))
	}
	args = append(args,
		"-i", inputPath,
		"-vn",
		"-acodec", targetCodec,
		"-ar", targetSampleRate,
		"-ac", targetChannels,
		"-b:a", targetBitrate,
		outputPath,
	)
	return args
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
